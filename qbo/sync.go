package qbo

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// remoteAPI is the slice of the QuickBooks API the sync engine needs.
// Tests swap it for a fake via newRemoteAPI.
type remoteAPI interface {
	CreateCustomer(ctx context.Context, customer *Customer) (*Customer, error)
	UpdateCustomer(ctx context.Context, customer *Customer) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	FindCustomerByName(ctx context.Context, displayName string) *Customer
	CreateItem(ctx context.Context, item *Item) (*Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	FindItemByName(ctx context.Context, name string) *Item
	CreateInvoice(ctx context.Context, invoice *Invoice) (*Invoice, error)
	UpdateInvoice(ctx context.Context, invoice *Invoice) (*Invoice, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	VoidInvoice(ctx context.Context, id, syncToken, note string) error
	CreateEstimate(ctx context.Context, estimate *Estimate) (*Estimate, error)
	UpdateEstimate(ctx context.Context, estimate *Estimate) (*Estimate, error)
	GetEstimate(ctx context.Context, id string) (*Estimate, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// newRemoteAPI builds an authenticated API client. Package var so tests can
// inject a fake without a live connection.
var newRemoteAPI = func(ctx context.Context) (remoteAPI, error) {
	accessToken, realmId, err := ActiveToken(ctx)
	if err != nil {
		return nil, err
	}
	return newAPIClient(accessToken, realmId), nil
}

// Syncer drives entity synchronization between local records and QuickBooks.
type Syncer struct {
	api    remoteAPI
	logger *logrus.Logger
}

func NewSyncer(ctx context.Context) (*Syncer, error) {
	api, err := newRemoteAPI(ctx)
	if err != nil {
		return nil, err
	}
	return &Syncer{api: api, logger: config.GetLogger()}, nil
}

// PushResult is what a successful order push reports back.
type PushResult struct {
	DocId     string `json:"doc_id"`
	DocNumber string `json:"doc_number"`
	DocType   string `json:"doc_type"`
	IsUpdate  bool   `json:"is_update"`
}

// SyncAccountToCustomer ensures the account has a QuickBooks customer and
// returns its id. Match order: stored id, then exact DisplayName, then create.
func (s *Syncer) SyncAccountToCustomer(ctx context.Context, accountId int) (string, error) {
	account, err := models.GetAccount(ctx, accountId)
	if err != nil {
		return "", err
	}

	if account.QboCustomerId != nil && *account.QboCustomerId != "" {
		return *account.QboCustomerId, nil
	}

	customer := s.api.FindCustomerByName(ctx, account.Name)
	if customer == nil {
		created, err := s.api.CreateCustomer(ctx, buildCustomer(account))
		if err != nil {
			return "", err
		}
		customer = created
	}

	if err := linkAccountToCustomer(ctx, account, customer.Id); err != nil {
		return "", err
	}
	return customer.Id, nil
}

func buildCustomer(account *models.Account) *Customer {
	customer := &Customer{
		DisplayName: account.Name,
		CompanyName: account.Name,
	}
	if addr := account.PrimaryBillingAddress(); addr != nil {
		customer.BillAddr = &PhysicalAddress{
			Line1:                  addr.Line1,
			Line2:                  addr.Line2,
			City:                   addr.City,
			CountrySubDivisionCode: addr.State,
			PostalCode:             addr.PostalCode,
			Country:                addr.Country,
		}
	}
	for _, contact := range account.Contacts {
		if !contact.IsPrimary {
			continue
		}
		if contact.Email != "" {
			customer.PrimaryEmail = &EmailAddress{Address: contact.Email}
		}
		if contact.Phone != "" {
			customer.PrimaryPhone = &TelephoneNumber{FreeFormNumber: contact.Phone}
		}
		break
	}
	return customer
}

func linkAccountToCustomer(ctx context.Context, account *models.Account, customerId string) error {
	db := config.GetDB().WithContext(ctx)
	if err := db.Model(account).Updates(map[string]interface{}{"qbo_customer_id": customerId}).Error; err != nil {
		return err
	}
	return models.RecordSyncMap(ctx, models.SyncEntityAccount, account.ID, models.QboTypeCustomer, customerId)
}

// SyncProductToItem ensures the product has a QuickBooks service item and
// returns its id. New items are created as Type Service with the configured
// income account.
func (s *Syncer) SyncProductToItem(ctx context.Context, productId int) (string, error) {
	product, err := models.GetProduct(ctx, productId)
	if err != nil {
		return "", err
	}

	if product.QboItemId != nil && *product.QboItemId != "" {
		return *product.QboItemId, nil
	}

	displayName := product.DisplayName()
	item := s.api.FindItemByName(ctx, displayName)
	if item == nil {
		created, err := s.api.CreateItem(ctx, &Item{
			Name:             displayName,
			Type:             "Service",
			IncomeAccountRef: incomeAccountRef(),
		})
		if err != nil {
			return "", err
		}
		item = created
	}

	db := config.GetDB().WithContext(ctx)
	if err := db.Model(product).Updates(map[string]interface{}{"qbo_item_id": item.Id}).Error; err != nil {
		return "", err
	}
	if err := models.RecordSyncMap(ctx, models.SyncEntityProduct, product.ID, models.QboTypeItem, item.Id); err != nil {
		return "", err
	}
	return item.Id, nil
}

func incomeAccountRef() *Ref {
	if v := strings.TrimSpace(os.Getenv("QBO_INCOME_ACCOUNT_ID")); v != "" {
		return &Ref{Value: v}
	}
	return nil
}

// PushOrderToQBO posts an order as an invoice or estimate, or re-pushes an
// already-posted one. Each line's product is synced first so every line has a
// valid ItemRef. The line Amount carries the commission, not the goods value.
func (s *Syncer) PushOrderToQBO(ctx context.Context, orderId int, docType string) (*PushResult, error) {
	if !models.IsValidDocType(docType) {
		return nil, ErrWrongDocType
	}

	order, err := models.GetOrderWithLines(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("order %s is cancelled", order.OrderNo)
	}

	customerId, err := s.SyncAccountToCustomer(ctx, order.BuyerId)
	if err != nil {
		return nil, fmt.Errorf("sync buyer: %w", err)
	}

	lines := make([]Line, 0, len(order.Lines))
	for i := range order.Lines {
		line := &order.Lines[i]
		itemId, err := s.SyncProductToItem(ctx, line.ProductId)
		if err != nil {
			return nil, fmt.Errorf("sync product on line %d: %w", line.LineNo, err)
		}
		amount := decimal.Zero
		if line.CommissionAmt != nil {
			amount = *line.CommissionAmt
		}
		qty := line.Quantity
		unitPrice := decimal.Zero
		if !qty.IsZero() {
			unitPrice = amount.DivRound(qty, 2)
		}
		lines = append(lines, Line{
			Description: lineDescription(order, line),
			Amount:      &amount,
			DetailType:  "SalesItemLineDetail",
			SalesItemLineDetail: &SalesItemLineDetail{
				ItemRef:   &Ref{Value: itemId},
				Qty:       &qty,
				UnitPrice: &unitPrice,
			},
		})
	}

	isUpdate := isUpdatePush(order, docType)

	var result *PushResult
	switch docType {
	case models.QboDocTypeInvoice:
		result, err = s.pushInvoice(ctx, order, customerId, lines, isUpdate)
	case models.QboDocTypeEstimate:
		result, err = s.pushEstimate(ctx, order, customerId, lines, isUpdate)
	}
	if err != nil {
		return nil, err
	}

	db := config.GetDB().WithContext(ctx)
	updates := map[string]interface{}{
		"qbo_doc_type":   docType,
		"qbo_doc_id":     result.DocId,
		"qbo_doc_number": result.DocNumber,
		"status":         models.OrderStatusPostedToQB,
	}
	if err := db.Model(order).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := models.RecordSyncMap(ctx, models.SyncEntityOrder, order.ID, docType, result.DocId); err != nil {
		return nil, err
	}
	return result, nil
}

// isUpdatePush reports whether the push should update the existing QBO
// document instead of creating a new one.
func isUpdatePush(order *models.Order, docType string) bool {
	return order.QboDocId != nil && *order.QboDocId != "" &&
		order.QboDocType != nil && *order.QboDocType == docType
}

func (s *Syncer) pushInvoice(ctx context.Context, order *models.Order, customerId string, lines []Line, isUpdate bool) (*PushResult, error) {
	invoice := &Invoice{
		DocNumber:   order.OrderNo,
		CustomerRef: &Ref{Value: customerId},
		Line:        lines,
		PrivateNote: "Order " + order.OrderNo,
	}

	if isUpdate {
		existing, err := s.api.GetInvoice(ctx, *order.QboDocId)
		if err != nil {
			return nil, err
		}
		invoice.Id = existing.Id
		invoice.SyncToken = existing.SyncToken
		// Replace the document's lines wholesale: mark each existing line
		// deleted, then append the fresh set.
		invoice.Line = append(deletionLines(existing.Line), lines...)
		updated, err := s.api.UpdateInvoice(ctx, invoice)
		if err != nil {
			return nil, err
		}
		return &PushResult{DocId: updated.Id, DocNumber: updated.DocNumber, DocType: models.QboDocTypeInvoice, IsUpdate: true}, nil
	}

	created, err := s.api.CreateInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}
	return &PushResult{DocId: created.Id, DocNumber: created.DocNumber, DocType: models.QboDocTypeInvoice}, nil
}

func (s *Syncer) pushEstimate(ctx context.Context, order *models.Order, customerId string, lines []Line, isUpdate bool) (*PushResult, error) {
	estimate := &Estimate{
		DocNumber:   order.OrderNo,
		CustomerRef: &Ref{Value: customerId},
		Line:        lines,
		PrivateNote: "Order " + order.OrderNo,
	}

	if isUpdate {
		existing, err := s.api.GetEstimate(ctx, *order.QboDocId)
		if err != nil {
			return nil, err
		}
		estimate.Id = existing.Id
		estimate.SyncToken = existing.SyncToken
		estimate.Line = append(deletionLines(existing.Line), lines...)
		updated, err := s.api.UpdateEstimate(ctx, estimate)
		if err != nil {
			return nil, err
		}
		return &PushResult{DocId: updated.Id, DocNumber: updated.DocNumber, DocType: models.QboDocTypeEstimate, IsUpdate: true}, nil
	}

	created, err := s.api.CreateEstimate(ctx, estimate)
	if err != nil {
		return nil, err
	}
	return &PushResult{DocId: created.Id, DocNumber: created.DocNumber, DocType: models.QboDocTypeEstimate}, nil
}

// deletionLines converts a document's existing lines into DescriptionOnly
// tombstones, which the API treats as line deletions on a full update.
func deletionLines(existing []Line) []Line {
	out := make([]Line, 0, len(existing))
	for _, line := range existing {
		if line.Id == "" {
			continue
		}
		out = append(out, Line{
			Id:                    line.Id,
			DetailType:            "DescriptionOnly",
			DescriptionLineDetail: &struct{}{},
		})
	}
	return out
}

// lineDescription renders the human-readable invoice line, e.g.
// "500 cartons Almonds Nonpareil Supreme @ $42.50/carton (delivered)".
func lineDescription(order *models.Order, line *models.OrderLine) string {
	parts := []string{line.Quantity.String()}
	if line.PackageType != "" {
		parts = append(parts, line.PackageType)
	}
	if line.Product != nil {
		if line.Product.Name != "" {
			parts = append(parts, line.Product.Name)
		}
		if line.Product.Variety != "" {
			parts = append(parts, line.Product.Variety)
		}
	}
	if line.SizeGrade != "" {
		parts = append(parts, line.SizeGrade)
	}
	parts = append(parts, "@", "$"+line.UnitPrice.StringFixed(2)+"/"+line.Uom)
	if order.IsPickup {
		parts = append(parts, "(pickup)")
	} else {
		parts = append(parts, "(delivered)")
	}
	return strings.Join(parts, " ")
}

// VoidOrderInvoice voids the QuickBooks invoice behind an order. Orders posted
// as estimates cannot be voided this way.
func (s *Syncer) VoidOrderInvoice(ctx context.Context, orderId int, reason string) (string, error) {
	order, err := models.GetOrder(ctx, orderId)
	if err != nil {
		return "", err
	}
	if order.QboDocId == nil || *order.QboDocId == "" {
		return "", ErrNotSynced
	}
	if order.QboDocType == nil || *order.QboDocType != models.QboDocTypeInvoice {
		return "", ErrWrongDocType
	}

	invoice, err := s.api.GetInvoice(ctx, *order.QboDocId)
	if err != nil {
		return "", err
	}

	note := "Voided from CRM"
	if reason != "" {
		note = note + ": " + reason
	}
	if err := s.api.VoidInvoice(ctx, invoice.Id, invoice.SyncToken, note); err != nil {
		return "", err
	}

	// Keep the document reference; the voided invoice stays linked for the
	// audit trail, and a re-push against it fails rather than forking a new
	// invoice.
	db := config.GetDB().WithContext(ctx)
	if err := db.Model(order).Updates(map[string]interface{}{"status": models.OrderStatusCancelled}).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("Invoice %s voided", invoice.DocNumber), nil
}

// SyncInvoiceStatus pulls the invoice balance from QuickBooks and folds the
// derived payment status back onto the order.
func (s *Syncer) SyncInvoiceStatus(ctx context.Context, orderId int) (string, error) {
	order, err := models.GetOrder(ctx, orderId)
	if err != nil {
		return "", err
	}
	if order.QboDocId == nil || *order.QboDocId == "" {
		return "", ErrNotSynced
	}
	if order.QboDocType == nil || *order.QboDocType != models.QboDocTypeInvoice {
		return "", ErrWrongDocType
	}

	invoice, err := s.api.GetInvoice(ctx, *order.QboDocId)
	if err != nil {
		return "", err
	}

	balance := decimal.Zero
	if invoice.Balance != nil {
		balance = *invoice.Balance
	}
	total := decimal.Zero
	if invoice.TotalAmt != nil {
		total = *invoice.TotalAmt
	}
	status := PaymentStatusFromBalance(balance, total)

	if status == models.PaymentStatusPaid && order.Status != models.OrderStatusPaid {
		db := config.GetDB().WithContext(ctx)
		if err := db.Model(order).Updates(map[string]interface{}{"status": models.OrderStatusPaid}).Error; err != nil {
			return "", err
		}
	}
	return status, nil
}

// PaymentStatusFromBalance derives a payment status from an invoice's balance
// and total. A zero-total invoice is never considered paid.
func PaymentStatusFromBalance(balance, total decimal.Decimal) string {
	switch {
	case balance.IsZero() && total.GreaterThan(decimal.Zero):
		return models.PaymentStatusPaid
	case balance.GreaterThan(decimal.Zero) && balance.LessThan(total):
		return models.PaymentStatusPartial
	default:
		return models.PaymentStatusUnpaid
	}
}
