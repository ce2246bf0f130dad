package qbo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Entity names as they appear in webhook notifications.
const (
	webhookEntityCustomer = "Customer"
	webhookEntityItem     = "Item"
	webhookEntityInvoice  = "Invoice"
	webhookEntityPayment  = "Payment"
)

const (
	webhookOpCreate = "Create"
	webhookOpUpdate = "Update"
	webhookOpDelete = "Delete"
	webhookOpVoid   = "Void"
)

type webhookEntity struct {
	Name        string `json:"name"`
	Id          string `json:"id"`
	Operation   string `json:"operation"`
	LastUpdated string `json:"lastUpdated"`
}

type webhookPayload struct {
	EventNotifications []struct {
		RealmId         string `json:"realmId"`
		DataChangeEvent struct {
			Entities []webhookEntity `json:"entities"`
		} `json:"dataChangeEvent"`
	} `json:"eventNotifications"`
}

// VerifySignature checks the intuit-signature header: base64 of
// HMAC-SHA256(rawBody) keyed with the webhook verifier token.
func VerifySignature(rawBody []byte, signature, verifierToken string) bool {
	if signature == "" || verifierToken == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(verifierToken))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookHandler receives change notifications from QuickBooks. The signature
// gate fails closed; once it passes, per-entity failures are logged and
// swallowed so Intuit never retries the whole batch.
func WebhookHandler() gin.HandlerFunc {
	logger := config.GetLogger()
	return func(c *gin.Context) {
		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		verifierToken := strings.TrimSpace(os.Getenv("QBO_WEBHOOK_VERIFIER_TOKEN"))
		signature := c.GetHeader("intuit-signature")
		if !VerifySignature(rawBody, signature, verifierToken) {
			config.LogError(logger, "qbo", "WebhookHandler", "signature", nil, ErrSignatureInvalid)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		var payload webhookPayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			// Already authenticated; ack so Intuit does not retry garbage.
			c.Status(http.StatusOK)
			return
		}

		ctx := c.Request.Context()
		for _, notification := range payload.EventNotifications {
			for _, entity := range notification.DataChangeEvent.Entities {
				if err := dispatchWebhookEntity(ctx, entity); err != nil {
					config.LogError(logger, "qbo", "WebhookHandler", entity.Name+"/"+entity.Operation, entity, err)
				}
			}
		}
		c.Status(http.StatusOK)
	}
}

func dispatchWebhookEntity(ctx context.Context, entity webhookEntity) error {
	logger := config.GetLogger()
	switch entity.Name {
	case webhookEntityInvoice:
		return handleInvoiceChange(ctx, entity)
	case webhookEntityCustomer:
		return handleCustomerChange(ctx, entity)
	case webhookEntityItem:
		return handleItemChange(ctx, entity)
	case webhookEntityPayment:
		return handlePaymentChange(ctx, entity)
	default:
		logger.WithFields(logrus.Fields{
			"entity":    entity.Name,
			"operation": entity.Operation,
			"id":        entity.Id,
		}).Debug("ignoring webhook entity")
		return nil
	}
}

// handleInvoiceChange reconciles an invoice-side change onto the linked order.
func handleInvoiceChange(ctx context.Context, entity webhookEntity) error {
	order, err := models.GetOrderByQboDocId(ctx, entity.Id)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	switch entity.Operation {
	case webhookOpDelete, webhookOpVoid:
		// The document reference stays so the audit trail can still point at
		// the voided invoice.
		db := config.GetDB().WithContext(ctx)
		if err := db.Model(order).Updates(map[string]interface{}{"status": models.OrderStatusCancelled}).Error; err != nil {
			return err
		}
		return models.RecordOrderActivity(ctx, models.NewOrderActivity{
			OrderId:      order.ID,
			ActivityType: models.ActivityInvoiceVoided,
			Description:  "Invoice " + entity.Id + " was voided in QuickBooks",
			UserName:     models.WebhookActor,
		})
	case webhookOpCreate, webhookOpUpdate:
		return reconcileInvoiceBalance(ctx, order, entity.Id)
	default:
		return nil
	}
}

// reconcileInvoiceBalance fetches the invoice and folds its current state back
// onto the order: total, document number, and payment-derived status. A paid
// order whose balance reopens in QuickBooks drops back to posted_to_qb. The
// payment activity is recorded at most once.
func reconcileInvoiceBalance(ctx context.Context, order *models.Order, invoiceId string) error {
	api, err := newRemoteAPI(ctx)
	if err != nil {
		return err
	}
	invoice, err := api.GetInvoice(ctx, invoiceId)
	if err != nil {
		return err
	}

	balance := decimal.Zero
	if invoice.Balance != nil {
		balance = *invoice.Balance
	}
	total := decimal.Zero
	if invoice.TotalAmt != nil {
		total = *invoice.TotalAmt
	}

	paymentStatus := PaymentStatusFromBalance(balance, total)
	status := models.OrderStatusPostedToQB
	if paymentStatus == models.PaymentStatusPaid {
		status = models.OrderStatusPaid
	}

	db := config.GetDB().WithContext(ctx)
	updates := map[string]interface{}{
		"total_amount": total,
		"status":       status,
	}
	if invoice.DocNumber != "" {
		updates["qbo_doc_number"] = invoice.DocNumber
	}
	if err := db.Model(order).Updates(updates).Error; err != nil {
		return err
	}

	if status != models.OrderStatusPaid {
		return models.RecordOrderActivity(ctx, models.NewOrderActivity{
			OrderId:      order.ID,
			ActivityType: models.ActivitySyncedFromQB,
			Description:  "Invoice " + invoice.DocNumber + " updated from QuickBooks (amount " + total.StringFixed(2) + ", status " + paymentStatus + ")",
			UserName:     models.WebhookActor,
		})
	}

	// Guard against duplicate notifications for the same payment.
	count, err := models.CountOrderActivities(ctx, order.ID, models.ActivityPaymentReceived)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return models.RecordOrderActivity(ctx, models.NewOrderActivity{
		OrderId:      order.ID,
		ActivityType: models.ActivityPaymentReceived,
		Description:  "Payment received in full for invoice " + invoice.DocNumber,
		UserName:     models.WebhookActor,
	})
}

// handleCustomerChange refreshes the account name from QuickBooks on update,
// and unlinks the account on delete.
func handleCustomerChange(ctx context.Context, entity webhookEntity) error {
	account, err := models.GetAccountByQboCustomerId(ctx, entity.Id)
	if err != nil {
		return err
	}
	if account == nil {
		return nil
	}

	db := config.GetDB().WithContext(ctx)
	switch entity.Operation {
	case webhookOpDelete:
		return db.Model(account).Updates(map[string]interface{}{"qbo_customer_id": nil}).Error
	case webhookOpUpdate:
		api, err := newRemoteAPI(ctx)
		if err != nil {
			return err
		}
		customer, err := api.GetCustomer(ctx, entity.Id)
		if err != nil {
			return err
		}
		if customer.DisplayName != "" && customer.DisplayName != account.Name {
			return db.Model(account).Updates(map[string]interface{}{"name": customer.DisplayName}).Error
		}
		return nil
	default:
		return nil
	}
}

// handleItemChange unlinks products on delete. Create and Update are logged
// only; item catalogs are mastered locally.
func handleItemChange(ctx context.Context, entity webhookEntity) error {
	logger := config.GetLogger()
	switch entity.Operation {
	case webhookOpDelete:
		product, err := models.GetProductByQboItemId(ctx, entity.Id)
		if err != nil {
			return err
		}
		if product == nil {
			return nil
		}
		db := config.GetDB().WithContext(ctx)
		return db.Model(product).Updates(map[string]interface{}{"qbo_item_id": nil}).Error
	default:
		logger.WithFields(logrus.Fields{
			"entity":    entity.Name,
			"operation": entity.Operation,
			"id":        entity.Id,
		}).Info("item change received; no local action")
		return nil
	}
}

// handlePaymentChange fetches the payment, walks its linked invoices, and
// reconciles each linked order. Runs for every operation: a voided payment is
// still fetchable with its links intact, and reconciling reopens the order.
func handlePaymentChange(ctx context.Context, entity webhookEntity) error {
	api, err := newRemoteAPI(ctx)
	if err != nil {
		return err
	}
	payment, err := api.GetPayment(ctx, entity.Id)
	if err != nil {
		return err
	}

	for _, line := range payment.Line {
		for _, txn := range line.LinkedTxn {
			if txn.TxnType != "Invoice" {
				continue
			}
			order, err := models.GetOrderByQboDocId(ctx, txn.TxnId)
			if err != nil {
				return err
			}
			if order == nil {
				continue
			}
			if err := reconcileInvoiceBalance(ctx, order, txn.TxnId); err != nil {
				return err
			}
		}
	}
	return nil
}
