package qbo

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
	"github.com/pacefoods/crm_backend/utils"
)

const oauthStateTTL = 10 * time.Minute

func oauthStateKey(state string) string {
	return "qbo:oauth:state:" + state
}

// ConnectHandler redirects the browser to the Intuit consent page. The state
// value is parked in redis and checked on callback.
func ConnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := uuid.NewString()
		if err := config.SetRedisValue(oauthStateKey(state), "1", oauthStateTTL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store oauth state"})
			return
		}
		authorizeURL, err := AuthorizeURL(state)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, authorizeURL)
	}
}

// CallbackHandler completes the OAuth flow: verify state, exchange the code,
// persist the credential, and show a close-this-window page.
func CallbackHandler() gin.HandlerFunc {
	logger := config.GetLogger()
	return func(c *gin.Context) {
		code := c.Query("code")
		realmId := c.Query("realmId")
		state := c.Query("state")
		if code == "" || realmId == "" {
			c.String(http.StatusBadRequest, "missing code or realmId")
			return
		}

		if state != "" {
			if _, found, _ := config.GetRedisValue(oauthStateKey(state)); !found && config.GetRedisDB() != nil {
				c.String(http.StatusBadRequest, "invalid oauth state")
				return
			}
			_ = config.RemoveRedisKey(oauthStateKey(state))
		}

		ctx := c.Request.Context()
		tokens, err := ExchangeCode(ctx, code)
		if err != nil {
			config.LogError(logger, "qbo", "CallbackHandler", "exchange", nil, err)
			c.String(http.StatusInternalServerError, "token exchange failed")
			return
		}

		if _, err := models.UpsertCredential(ctx, realmId, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt, tokens.RefreshTokenExpiresAt); err != nil {
			config.LogError(logger, "qbo", "CallbackHandler", "persist", nil, err)
			c.String(http.StatusInternalServerError, "failed to store credentials")
			return
		}

		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, "<html><body><h3>QuickBooks connected.</h3><p>You can close this window.</p></body></html>")
	}
}

// StatusHandler reports the connection state without exposing tokens.
func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := models.ActiveCredential(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cred == nil {
			c.JSON(http.StatusOK, gin.H{"connected": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"connected": true,
			"realmId":   cred.RealmId,
			"expiresAt": cred.ExpiresAt.UTC().Format(time.RFC3339),
			"isExpired": time.Now().After(cred.ExpiresAt),
		})
	}
}

// DisconnectHandler deactivates the stored credential. Tokens stay on Intuit's
// side until they expire; we just stop using them.
func DisconnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.DeactivateCredential(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": false})
	}
}

type pushOrderRequest struct {
	DocType string `json:"doc_type" binding:"required"`
}

// PushOrderHandler posts an order to QuickBooks as an invoice or estimate.
func PushOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		var req pushOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "doc_type is required"})
			return
		}
		docType := strings.ToLower(strings.TrimSpace(req.DocType))
		if !models.IsValidDocType(docType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "doc_type must be invoice or estimate"})
			return
		}
		pushOrder(c, orderId, docType, false)
	}
}

// RepushOrderHandler re-pushes an already-posted order with its current lines.
func RepushOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		ctx := c.Request.Context()
		order, err := models.GetOrder(ctx, orderId)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		if order.QboDocId == nil || order.QboDocType == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order has not been pushed yet"})
			return
		}
		pushOrder(c, orderId, *order.QboDocType, true)
	}
}

func pushOrder(c *gin.Context, orderId int, docType string, repush bool) {
	ctx := c.Request.Context()
	syncer, err := NewSyncer(ctx)
	if err != nil {
		respondSyncError(c, err)
		return
	}
	result, err := syncer.PushOrderToQBO(ctx, orderId, docType)
	if err != nil {
		respondSyncError(c, err)
		return
	}

	docLabel := docTypeLabel(docType)
	activityType := models.ActivityInvoiceCreated
	description := docLabel + " " + result.DocNumber + " created in QuickBooks"
	if result.IsUpdate || repush {
		activityType = models.ActivityInvoiceUpdated
		description = docLabel + " " + result.DocNumber + " updated in QuickBooks"
	}
	if err := models.RecordOrderActivity(ctx, models.NewOrderActivity{
		OrderId:      orderId,
		ActivityType: activityType,
		Description:  description,
	}); err != nil {
		config.LogError(config.GetLogger(), "qbo", "pushOrder", "activity", nil, err)
	}

	go func() {
		_ = PublishSyncEvent(context.WithoutCancel(ctx), SyncEvent{
			EventType:  activityType,
			EntityType: models.SyncEntityOrder,
			EntityId:   orderId,
			QboId:      result.DocId,
		})
	}()

	c.JSON(http.StatusOK, result)
}

type voidRequest struct {
	Reason string `json:"reason"`
}

// VoidOrderHandler voids the invoice behind an order.
func VoidOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		var req voidRequest
		_ = c.ShouldBindJSON(&req)

		ctx := c.Request.Context()
		syncer, err := NewSyncer(ctx)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		message, err := syncer.VoidOrderInvoice(ctx, orderId, req.Reason)
		if err != nil {
			respondSyncError(c, err)
			return
		}

		if err := models.RecordOrderActivity(ctx, models.NewOrderActivity{
			OrderId:      orderId,
			ActivityType: models.ActivityInvoiceVoided,
			Description:  message,
		}); err != nil {
			config.LogError(config.GetLogger(), "qbo", "VoidOrderHandler", "activity", nil, err)
		}

		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// SyncAccountHandler syncs one account to a QuickBooks customer on demand.
func SyncAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		ctx := c.Request.Context()
		syncer, err := NewSyncer(ctx)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		customerId, err := syncer.SyncAccountToCustomer(ctx, accountId)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"qbo_customer_id": customerId})
	}
}

// SyncProductHandler syncs one product to a QuickBooks item on demand.
func SyncProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}
		ctx := c.Request.Context()
		syncer, err := NewSyncer(ctx)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		itemId, err := syncer.SyncProductToItem(ctx, productId)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"qbo_item_id": itemId})
	}
}

// OrderStatusHandler pulls the invoice payment status from QuickBooks.
func OrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		ctx := c.Request.Context()
		syncer, err := NewSyncer(ctx)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		status, err := syncer.SyncInvoiceStatus(ctx, orderId)
		if err != nil {
			respondSyncError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment_status": status})
	}
}

func docTypeLabel(docType string) string {
	if docType == models.QboDocTypeEstimate {
		return "Estimate"
	}
	return "Invoice"
}

// respondSyncError maps sync errors onto HTTP statuses.
func respondSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrRefreshFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotSynced), errors.Is(err, ErrWrongDocType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
