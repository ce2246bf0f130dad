package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
	"github.com/pacefoods/crm_backend/utils"
)

type newAccountRequest struct {
	Code      string              `json:"code" binding:"required"`
	Name      string              `json:"name" binding:"required"`
	Addresses []newAddressRequest `json:"addresses"`
	Contacts  []newContactRequest `json:"contacts"`
}

type newAddressRequest struct {
	Type       string `json:"type" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsPrimary  bool   `json:"is_primary"`
}

type newContactRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IsPrimary bool   `json:"is_primary"`
}

func bindError(c *gin.Context, err error) {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(errs)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

// CreateAccountHandler creates an account with its addresses and contacts.
func CreateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req newAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		account := models.Account{
			Code:   strings.TrimSpace(req.Code),
			Name:   strings.TrimSpace(req.Name),
			Active: true,
		}
		for _, a := range req.Addresses {
			country := a.Country
			if country == "" {
				country = utils.CountryCode
			}
			account.Addresses = append(account.Addresses, models.Address{
				Type:       a.Type,
				Line1:      a.Line1,
				Line2:      a.Line2,
				City:       a.City,
				State:      a.State,
				PostalCode: a.PostalCode,
				Country:    country,
				IsPrimary:  a.IsPrimary,
			})
		}
		for _, ct := range req.Contacts {
			if ct.Email != "" && !utils.IsValidEmail(ct.Email) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email: " + ct.Email})
				return
			}
			if ct.Phone != "" {
				if err := utils.ValidatePhoneNumber(ct.Phone, utils.CountryCode); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone: " + ct.Phone})
					return
				}
			}
			account.Contacts = append(account.Contacts, models.Contact{
				Name:      ct.Name,
				Email:     ct.Email,
				Phone:     ct.Phone,
				IsPrimary: ct.IsPrimary,
			})
		}

		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Create(&account).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

// GetAccountHandler returns one account with addresses and contacts.
func GetAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		account, err := models.GetAccount(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

// ListAccountsHandler lists accounts with optional name search.
func ListAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB().WithContext(c.Request.Context())
		query := db.Model(&models.Account{}).Order("name asc")

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			query = query.Where("name LIKE ? OR code LIKE ?", "%"+search+"%", "%"+search+"%")
		}
		if c.Query("active") == "true" {
			query = query.Where("active = ?", true)
		}

		var accounts []models.Account
		if err := query.Limit(config.SearchLimit).Find(&accounts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

type updateAccountRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

// UpdateAccountHandler patches the mutable account fields. The QuickBooks
// link is managed by the sync path, never by this handler.
func UpdateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		var req updateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		account, err := models.GetAccount(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Active != nil {
			updates["active"] = *req.Active
		}
		if len(updates) == 0 {
			c.JSON(http.StatusOK, account)
			return
		}

		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Model(account).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, account)
	}
}
