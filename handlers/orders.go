package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
	"github.com/pacefoods/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type newOrderLineRequest struct {
	ProductId     int              `json:"product_id" binding:"required"`
	SizeGrade     string           `json:"size_grade"`
	PackageType   string           `json:"package_type"`
	Quantity      decimal.Decimal  `json:"quantity" binding:"required"`
	Uom           string           `json:"uom" binding:"required"`
	UnitPrice     decimal.Decimal  `json:"unit_price" binding:"required"`
	CommissionPct *decimal.Decimal `json:"commission_pct"`
	CommissionAmt *decimal.Decimal `json:"commission_amt"`
}

type newOrderRequest struct {
	SellerId   int                   `json:"seller_id" binding:"required"`
	BuyerId    int                   `json:"buyer_id" binding:"required"`
	ContractNo string                `json:"contract_no"`
	IsPickup   bool                  `json:"is_pickup"`
	Terms      string                `json:"terms"`
	Notes      string                `json:"notes"`
	Lines      []newOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// nextOrderNo issues "PF-YYYY-NNNN" order numbers within a transaction.
func nextOrderNo(tx *gorm.DB) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("PF-%d-", year)

	var last models.Order
	err := tx.Where("order_no LIKE ?", prefix+"%").Order("order_no desc").Take(&last).Error
	seq := 1
	if err == nil {
		if n, convErr := strconv.Atoi(strings.TrimPrefix(last.OrderNo, prefix)); convErr == nil {
			seq = n + 1
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// buildOrderLine derives the commission amount when only a percentage is
// given, and the line total from quantity and unit price.
func buildOrderLine(lineNo int, req newOrderLineRequest) models.OrderLine {
	lineTotal := req.Quantity.Mul(req.UnitPrice).Round(2)

	commissionAmt := req.CommissionAmt
	if commissionAmt == nil && req.CommissionPct != nil {
		amt := lineTotal.Mul(*req.CommissionPct).Div(decimal.NewFromInt(100)).Round(2)
		commissionAmt = &amt
	}

	return models.OrderLine{
		LineNo:        lineNo,
		ProductId:     req.ProductId,
		SizeGrade:     req.SizeGrade,
		PackageType:   req.PackageType,
		Quantity:      req.Quantity,
		Uom:           req.Uom,
		UnitPrice:     req.UnitPrice,
		CommissionPct: req.CommissionPct,
		CommissionAmt: commissionAmt,
		LineTotal:     lineTotal,
	}
}

// CreateOrderHandler creates a draft order with lines and totals.
func CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req newOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		ctx := c.Request.Context()
		actor := "system"
		if name, ok := utils.GetUserNameFromContext(ctx); ok {
			actor = name
		}

		order := models.Order{
			SellerId:   req.SellerId,
			BuyerId:    req.BuyerId,
			Status:     models.OrderStatusDraft,
			ContractNo: req.ContractNo,
			IsPickup:   req.IsPickup,
			Terms:      req.Terms,
			Notes:      req.Notes,
			CreatedBy:  actor,
		}
		for i, line := range req.Lines {
			order.Lines = append(order.Lines, buildOrderLine(i+1, line))
		}
		order.RecalculateTotals()

		db := config.GetDB().WithContext(ctx)
		err := db.Transaction(func(tx *gorm.DB) error {
			orderNo, err := nextOrderNo(tx)
			if err != nil {
				return err
			}
			order.OrderNo = orderNo
			return tx.Create(&order).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		_ = models.RecordOrderActivity(ctx, models.NewOrderActivity{
			OrderId:      order.ID,
			ActivityType: models.ActivityOrderCreated,
			Description:  "Order " + order.OrderNo + " created",
		})
		c.JSON(http.StatusCreated, order)
	}
}

// GetOrderHandler returns one order with its lines.
func GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		order, err := models.GetOrderWithLines(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// ListOrdersHandler lists orders filtered by status, buyer, or seller.
func ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB().WithContext(c.Request.Context())
		query := db.Model(&models.Order{}).Order("created_at desc")

		if status := strings.TrimSpace(c.Query("status")); status != "" {
			query = query.Where("status = ?", status)
		}
		if buyer := strings.TrimSpace(c.Query("buyer_id")); buyer != "" {
			query = query.Where("buyer_id = ?", buyer)
		}
		if seller := strings.TrimSpace(c.Query("seller_id")); seller != "" {
			query = query.Where("seller_id = ?", seller)
		}

		var orders []models.Order
		if err := query.Limit(config.SearchLimit).Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// ConfirmOrderHandler moves a draft order to confirmed.
func ConfirmOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		ctx := c.Request.Context()
		order, err := models.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if order.Status != models.OrderStatusDraft {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only draft orders can be confirmed"})
			return
		}

		db := config.GetDB().WithContext(ctx)
		if err := db.Model(order).Updates(map[string]interface{}{"status": models.OrderStatusConfirmed}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		_ = models.RecordOrderActivity(ctx, models.NewOrderActivity{
			OrderId:      order.ID,
			ActivityType: models.ActivityOrderConfirmed,
			Description:  "Order " + order.OrderNo + " confirmed",
		})
		c.JSON(http.StatusOK, order)
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrderHandler cancels an order that has not been paid. Orders posted to
// QuickBooks must be voided through the sync path first; this handler only
// touches the local record.
func CancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		var req cancelOrderRequest
		_ = c.ShouldBindJSON(&req)

		ctx := c.Request.Context()
		order, err := models.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !models.CanCancel(order.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order cannot be cancelled in status " + order.Status})
			return
		}
		if order.QboDocId != nil && *order.QboDocId != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "void the QuickBooks document before cancelling"})
			return
		}

		db := config.GetDB().WithContext(ctx)
		if err := db.Model(order).Updates(map[string]interface{}{"status": models.OrderStatusCancelled}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		description := "Order " + order.OrderNo + " cancelled"
		if req.Reason != "" {
			description = description + ": " + req.Reason
		}
		_ = models.RecordOrderActivity(ctx, models.NewOrderActivity{
			OrderId:      order.ID,
			ActivityType: models.ActivityOrderCancelled,
			Description:  description,
		})
		c.JSON(http.StatusOK, order)
	}
}
