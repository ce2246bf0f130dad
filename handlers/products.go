package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
	"github.com/pacefoods/crm_backend/utils"
	"github.com/shopspring/decimal"
)

type newProductRequest struct {
	Code            string           `json:"code"`
	Name            string           `json:"name" binding:"required"`
	Variety         string           `json:"variety"`
	Grade           string           `json:"grade"`
	Category        string           `json:"category"`
	DefaultUnitSize *decimal.Decimal `json:"default_unit_size"`
	Uom             string           `json:"uom"`
}

// CreateProductHandler creates a product in the local catalog.
func CreateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req newProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		product := models.Product{
			Code:            strings.TrimSpace(req.Code),
			Name:            strings.TrimSpace(req.Name),
			Variety:         strings.TrimSpace(req.Variety),
			Grade:           strings.TrimSpace(req.Grade),
			Category:        strings.TrimSpace(req.Category),
			DefaultUnitSize: req.DefaultUnitSize,
			Uom:             strings.TrimSpace(req.Uom),
			Active:          true,
		}
		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Create(&product).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// GetProductHandler returns one product.
func GetProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// ListProductsHandler lists products; archived ones are hidden unless asked for.
func ListProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB().WithContext(c.Request.Context())
		query := db.Model(&models.Product{}).Order("name asc")

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + search + "%"
			query = query.Where("name LIKE ? OR variety LIKE ? OR code LIKE ?", like, like, like)
		}
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			query = query.Where("category = ?", category)
		}
		if c.Query("include_archived") != "true" {
			query = query.Where("archived_at IS NULL")
		}

		var products []models.Product
		if err := query.Limit(config.SearchLimit).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

type updateProductRequest struct {
	Name     *string `json:"name"`
	Variety  *string `json:"variety"`
	Grade    *string `json:"grade"`
	Category *string `json:"category"`
	Uom      *string `json:"uom"`
}

// UpdateProductHandler patches the mutable product fields.
func UpdateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}
		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Variety != nil {
			updates["variety"] = strings.TrimSpace(*req.Variety)
		}
		if req.Grade != nil {
			updates["grade"] = strings.TrimSpace(*req.Grade)
		}
		if req.Category != nil {
			updates["category"] = strings.TrimSpace(*req.Category)
		}
		if req.Uom != nil {
			updates["uom"] = strings.TrimSpace(*req.Uom)
		}
		if len(updates) == 0 {
			c.JSON(http.StatusOK, product)
			return
		}

		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Model(product).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// ArchiveProductHandler soft-archives a product. The QuickBooks link is left
// in place so historical orders still resolve.
func ArchiveProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		actor := "system"
		if name, ok := utils.GetUserNameFromContext(c.Request.Context()); ok {
			actor = name
		}
		now := time.Now()
		db := config.GetDB().WithContext(c.Request.Context())
		updates := map[string]interface{}{
			"active":      false,
			"archived_at": now,
			"archived_by": actor,
		}
		if err := db.Model(product).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
