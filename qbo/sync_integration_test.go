package qbo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
	"github.com/shopspring/decimal"
)

// fakeRemoteAPI is an in-memory stand-in for the QuickBooks API. Counters let
// tests assert how many remote calls a flow made.
type fakeRemoteAPI struct {
	customersByName map[string]*Customer
	itemsByName     map[string]*Item
	invoices        map[string]*Invoice
	estimates       map[string]*Estimate
	payments        map[string]*Payment

	createCustomerCalls int32
	createItemCalls     int32
	createInvoiceCalls  int32
	updateInvoiceCalls  int32
	voidInvoiceCalls    int32

	nextId int32
}

func newFakeRemoteAPI() *fakeRemoteAPI {
	return &fakeRemoteAPI{
		customersByName: map[string]*Customer{},
		itemsByName:     map[string]*Item{},
		invoices:        map[string]*Invoice{},
		estimates:       map[string]*Estimate{},
		payments:        map[string]*Payment{},
	}
}

func (f *fakeRemoteAPI) newId() string {
	return fmt.Sprint(atomic.AddInt32(&f.nextId, 1))
}

func (f *fakeRemoteAPI) CreateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	atomic.AddInt32(&f.createCustomerCalls, 1)
	created := *customer
	created.Id = f.newId()
	created.SyncToken = "0"
	f.customersByName[created.DisplayName] = &created
	return &created, nil
}

func (f *fakeRemoteAPI) UpdateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	return customer, nil
}

func (f *fakeRemoteAPI) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	for _, c := range f.customersByName {
		if c.Id == id {
			return c, nil
		}
	}
	return nil, &RemoteError{Op: "get customer", Status: 404}
}

func (f *fakeRemoteAPI) FindCustomerByName(ctx context.Context, displayName string) *Customer {
	return f.customersByName[displayName]
}

func (f *fakeRemoteAPI) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	atomic.AddInt32(&f.createItemCalls, 1)
	created := *item
	created.Id = f.newId()
	f.itemsByName[created.Name] = &created
	return &created, nil
}

func (f *fakeRemoteAPI) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	return item, nil
}

func (f *fakeRemoteAPI) GetItem(ctx context.Context, id string) (*Item, error) {
	for _, it := range f.itemsByName {
		if it.Id == id {
			return it, nil
		}
	}
	return nil, &RemoteError{Op: "get item", Status: 404}
}

func (f *fakeRemoteAPI) FindItemByName(ctx context.Context, name string) *Item {
	return f.itemsByName[name]
}

func (f *fakeRemoteAPI) CreateInvoice(ctx context.Context, invoice *Invoice) (*Invoice, error) {
	atomic.AddInt32(&f.createInvoiceCalls, 1)
	created := *invoice
	created.Id = f.newId()
	created.SyncToken = "0"
	if created.DocNumber == "" {
		created.DocNumber = "QB-" + created.Id
	}
	total := decimal.Zero
	for _, line := range created.Line {
		if line.Amount != nil {
			total = total.Add(*line.Amount)
		}
	}
	created.TotalAmt = &total
	balance := total
	created.Balance = &balance
	f.invoices[created.Id] = &created
	return &created, nil
}

func (f *fakeRemoteAPI) UpdateInvoice(ctx context.Context, invoice *Invoice) (*Invoice, error) {
	atomic.AddInt32(&f.updateInvoiceCalls, 1)
	existing, ok := f.invoices[invoice.Id]
	if !ok {
		return nil, &RemoteError{Op: "update invoice", Status: 404}
	}
	updated := *invoice
	updated.DocNumber = existing.DocNumber
	updated.SyncToken = existing.SyncToken
	total := decimal.Zero
	for _, line := range updated.Line {
		if line.Amount != nil {
			total = total.Add(*line.Amount)
		}
	}
	updated.TotalAmt = &total
	balance := total
	updated.Balance = &balance
	f.invoices[updated.Id] = &updated
	return &updated, nil
}

func (f *fakeRemoteAPI) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, &RemoteError{Op: "get invoice", Status: 404}
	}
	return invoice, nil
}

func (f *fakeRemoteAPI) VoidInvoice(ctx context.Context, id, syncToken, note string) error {
	atomic.AddInt32(&f.voidInvoiceCalls, 1)
	invoice, ok := f.invoices[id]
	if !ok {
		return &RemoteError{Op: "void invoice", Status: 404}
	}
	if invoice.SyncToken != syncToken {
		return &RemoteError{Op: "void invoice", Status: 400, Message: "Stale Object Error"}
	}
	invoice.PrivateNote = note
	zero := decimal.Zero
	invoice.Balance = &zero
	invoice.TotalAmt = &zero
	return nil
}

func (f *fakeRemoteAPI) CreateEstimate(ctx context.Context, estimate *Estimate) (*Estimate, error) {
	created := *estimate
	created.Id = f.newId()
	created.SyncToken = "0"
	if created.DocNumber == "" {
		created.DocNumber = "QB-" + created.Id
	}
	f.estimates[created.Id] = &created
	return &created, nil
}

func (f *fakeRemoteAPI) UpdateEstimate(ctx context.Context, estimate *Estimate) (*Estimate, error) {
	f.estimates[estimate.Id] = estimate
	return estimate, nil
}

func (f *fakeRemoteAPI) GetEstimate(ctx context.Context, id string) (*Estimate, error) {
	estimate, ok := f.estimates[id]
	if !ok {
		return nil, &RemoteError{Op: "get estimate", Status: 404}
	}
	return estimate, nil
}

func (f *fakeRemoteAPI) GetPayment(ctx context.Context, id string) (*Payment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, &RemoteError{Op: "get payment", Status: 404}
	}
	return payment, nil
}

// setupIntegrationDB starts MySQL and Redis containers, wires config, and
// runs migrations. Skips unless INTEGRATION_TESTS=1.
func setupIntegrationDB(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "pacecrm_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
}

func seedAccount(t *testing.T, name string) *models.Account {
	t.Helper()
	account := &models.Account{
		Code:   strings.ToUpper(strings.ReplaceAll(name, " ", "-")),
		Name:   name,
		Active: true,
		Addresses: []models.Address{
			{Type: models.AddressTypeBilling, Line1: "1 Main St", City: "Fresno", State: "CA", PostalCode: "93650", Country: "US", IsPrimary: true},
		},
	}
	if err := config.GetDB().Create(account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func seedProduct(t *testing.T, name, variety, grade string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Variety: variety, Grade: grade, Active: true}
	if err := config.GetDB().Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

var seededOrders int32

func seedOrder(t *testing.T, buyer, seller *models.Account, product *models.Product) *models.Order {
	t.Helper()
	commission := decimal.RequireFromString("1062.50")
	pct := decimal.RequireFromString("5")
	order := &models.Order{
		OrderNo:   fmt.Sprintf("PF-2026-%04d", atomic.AddInt32(&seededOrders, 1)),
		SellerId:  seller.ID,
		BuyerId:   buyer.ID,
		Status:    models.OrderStatusConfirmed,
		CreatedBy: "Test",
		Lines: []models.OrderLine{
			{
				LineNo:        1,
				ProductId:     product.ID,
				PackageType:   "cartons",
				Quantity:      decimal.NewFromInt(500),
				Uom:           "carton",
				UnitPrice:     decimal.RequireFromString("42.50"),
				CommissionPct: &pct,
				CommissionAmt: &commission,
				LineTotal:     decimal.RequireFromString("21250.00"),
			},
		},
	}
	order.RecalculateTotals()
	if err := config.GetDB().Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestCustomerSyncIsIdempotent(t *testing.T) {
	setupIntegrationDB(t)
	ctx := context.Background()

	fake := newFakeRemoteAPI()
	syncer := &Syncer{api: fake, logger: config.GetLogger()}

	account := seedAccount(t, "Valley Fresh Distributors")

	firstId, err := syncer.SyncAccountToCustomer(ctx, account.ID)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	secondId, err := syncer.SyncAccountToCustomer(ctx, account.ID)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if firstId != secondId {
		t.Errorf("sync returned different ids: %q then %q", firstId, secondId)
	}
	if calls := atomic.LoadInt32(&fake.createCustomerCalls); calls != 1 {
		t.Errorf("CreateCustomer called %d times, want 1", calls)
	}

	var mappings int64
	if err := config.GetDB().Model(&models.SyncMap{}).
		Where("entity_type = ? AND entity_id = ?", models.SyncEntityAccount, account.ID).
		Count(&mappings).Error; err != nil {
		t.Fatalf("count mappings: %v", err)
	}
	if mappings != 1 {
		t.Errorf("sync map rows = %d, want 1", mappings)
	}
}

func TestCustomerSyncAdoptsExistingByName(t *testing.T) {
	setupIntegrationDB(t)
	ctx := context.Background()

	fake := newFakeRemoteAPI()
	fake.customersByName["Golden State Growers"] = &Customer{Id: "C-EXISTING", DisplayName: "Golden State Growers"}
	syncer := &Syncer{api: fake, logger: config.GetLogger()}

	account := seedAccount(t, "Golden State Growers")
	customerId, err := syncer.SyncAccountToCustomer(ctx, account.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if customerId != "C-EXISTING" {
		t.Errorf("customer id = %q, want existing C-EXISTING", customerId)
	}
	if calls := atomic.LoadInt32(&fake.createCustomerCalls); calls != 0 {
		t.Errorf("CreateCustomer called %d times, want 0", calls)
	}
}

func TestOrderPushRoundTrip(t *testing.T) {
	setupIntegrationDB(t)
	ctx := context.Background()

	fake := newFakeRemoteAPI()
	syncer := &Syncer{api: fake, logger: config.GetLogger()}

	// Route webhook reconciliation through the same fake.
	prev := newRemoteAPI
	newRemoteAPI = func(ctx context.Context) (remoteAPI, error) { return fake, nil }
	t.Cleanup(func() { newRemoteAPI = prev })

	buyer := seedAccount(t, "Pacific Rim Trading")
	seller := seedAccount(t, "Central Valley Farms")
	product := seedProduct(t, "Almonds", "Nonpareil", "Supreme")
	order := seedOrder(t, buyer, seller, product)

	result, err := syncer.PushOrderToQBO(ctx, order.ID, models.QboDocTypeInvoice)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if result.DocId == "" || result.DocNumber == "" {
		t.Fatalf("push result incomplete: %+v", result)
	}
	if result.IsUpdate {
		t.Error("first push reported as update")
	}

	pushed, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if pushed.Status != models.OrderStatusPostedToQB {
		t.Errorf("status = %q, want %q", pushed.Status, models.OrderStatusPostedToQB)
	}
	if pushed.QboDocId == nil || *pushed.QboDocId != result.DocId {
		t.Errorf("qbo doc id not stored")
	}

	// Invoice line amounts carry the commission, so the invoice total must be
	// the commission total, not the goods value.
	invoice := fake.invoices[result.DocId]
	if invoice == nil {
		t.Fatal("invoice not created in fake")
	}
	if !invoice.TotalAmt.Equal(decimal.RequireFromString("1062.50")) {
		t.Errorf("invoice total = %s, want commission 1062.50", invoice.TotalAmt)
	}

	// Second push of the same doc type updates in place.
	result2, err := syncer.PushOrderToQBO(ctx, order.ID, models.QboDocTypeInvoice)
	if err != nil {
		t.Fatalf("repush: %v", err)
	}
	if !result2.IsUpdate {
		t.Error("repush not reported as update")
	}
	if atomic.LoadInt32(&fake.createInvoiceCalls) != 1 || atomic.LoadInt32(&fake.updateInvoiceCalls) != 1 {
		t.Errorf("create/update calls = %d/%d, want 1/1",
			fake.createInvoiceCalls, fake.updateInvoiceCalls)
	}

	// Payment arrives in QuickBooks: balance drops to zero, webhook fires.
	zero := decimal.Zero
	invoice = fake.invoices[result.DocId]
	invoice.Balance = &zero

	event := webhookEntity{Name: webhookEntityInvoice, Id: result.DocId, Operation: webhookOpUpdate}
	if err := dispatchWebhookEntity(ctx, event); err != nil {
		t.Fatalf("webhook dispatch: %v", err)
	}

	paid, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if paid.Status != models.OrderStatusPaid {
		t.Errorf("status after payment = %q, want %q", paid.Status, models.OrderStatusPaid)
	}

	// A duplicate notification must not double-record the payment.
	if err := dispatchWebhookEntity(ctx, event); err != nil {
		t.Fatalf("duplicate webhook dispatch: %v", err)
	}
	count, err := models.CountOrderActivities(ctx, order.ID, models.ActivityPaymentReceived)
	if err != nil {
		t.Fatalf("count activities: %v", err)
	}
	if count != 1 {
		t.Errorf("payment_received activities = %d, want exactly 1", count)
	}

	var activity models.OrderActivity
	if err := config.GetDB().
		Where("order_id = ? AND activity_type = ?", order.ID, models.ActivityPaymentReceived).
		Take(&activity).Error; err != nil {
		t.Fatalf("load activity: %v", err)
	}
	if activity.UserName != models.WebhookActor {
		t.Errorf("activity actor = %q, want %q", activity.UserName, models.WebhookActor)
	}

	// The payment is deleted in QuickBooks and the balance reopens: the order
	// must drop back to posted_to_qb, carrying the invoice total and number.
	reopened := decimal.RequireFromString("1062.50")
	fake.invoices[result.DocId].Balance = &reopened
	if err := dispatchWebhookEntity(ctx, event); err != nil {
		t.Fatalf("reopen webhook dispatch: %v", err)
	}

	reverted, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reverted.Status != models.OrderStatusPostedToQB {
		t.Errorf("status after balance reopened = %q, want %q", reverted.Status, models.OrderStatusPostedToQB)
	}
	if reverted.QboDocNumber == nil || *reverted.QboDocNumber != result.DocNumber {
		t.Error("invoice doc number not persisted by reconciliation")
	}
	if !reverted.TotalAmount.Equal(decimal.RequireFromString("1062.50")) {
		t.Errorf("order total = %s, want invoice total 1062.50", reverted.TotalAmount)
	}
}

func TestInvoiceCreateWebhookMarksPaid(t *testing.T) {
	setupIntegrationDB(t)
	ctx := context.Background()

	fake := newFakeRemoteAPI()
	syncer := &Syncer{api: fake, logger: config.GetLogger()}
	prev := newRemoteAPI
	newRemoteAPI = func(ctx context.Context) (remoteAPI, error) { return fake, nil }
	t.Cleanup(func() { newRemoteAPI = prev })

	buyer := seedAccount(t, "Bayshore Produce")
	seller := seedAccount(t, "Delta Orchards")
	product := seedProduct(t, "Pistachios", "Kerman", "")
	order := seedOrder(t, buyer, seller, product)

	result, err := syncer.PushOrderToQBO(ctx, order.ID, models.QboDocTypeInvoice)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	zero := decimal.Zero
	fake.invoices[result.DocId].Balance = &zero

	event := webhookEntity{Name: webhookEntityInvoice, Id: result.DocId, Operation: webhookOpCreate}
	if err := dispatchWebhookEntity(ctx, event); err != nil {
		t.Fatalf("webhook dispatch: %v", err)
	}

	paid, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if paid.Status != models.OrderStatusPaid {
		t.Errorf("status after Create notification = %q, want %q", paid.Status, models.OrderStatusPaid)
	}
}

func TestPaymentVoidWebhookRevertsOrder(t *testing.T) {
	setupIntegrationDB(t)
	ctx := context.Background()

	fake := newFakeRemoteAPI()
	syncer := &Syncer{api: fake, logger: config.GetLogger()}
	prev := newRemoteAPI
	newRemoteAPI = func(ctx context.Context) (remoteAPI, error) { return fake, nil }
	t.Cleanup(func() { newRemoteAPI = prev })

	buyer := seedAccount(t, "North Coast Kitchens")
	seller := seedAccount(t, "Foothill Farms")
	product := seedProduct(t, "Apricots", "Blenheim", "")
	order := seedOrder(t, buyer, seller, product)

	result, err := syncer.PushOrderToQBO(ctx, order.ID, models.QboDocTypeInvoice)
	if err != nil {
		t.Fatalf("push: %v", err)
	}

	// Payment lands, order goes paid.
	zero := decimal.Zero
	fake.invoices[result.DocId].Balance = &zero
	if err := dispatchWebhookEntity(ctx, webhookEntity{Name: webhookEntityInvoice, Id: result.DocId, Operation: webhookOpUpdate}); err != nil {
		t.Fatalf("invoice webhook dispatch: %v", err)
	}

	// The payment is voided in QuickBooks. It stays fetchable with its links,
	// and the reopened balance must revert the order.
	fake.payments["P-1"] = &Payment{
		Id:   "P-1",
		Line: []PaymentLine{{LinkedTxn: []LinkedTxn{{TxnId: result.DocId, TxnType: "Invoice"}}}},
	}
	reopened := decimal.RequireFromString("1062.50")
	fake.invoices[result.DocId].Balance = &reopened
	if err := dispatchWebhookEntity(ctx, webhookEntity{Name: webhookEntityPayment, Id: "P-1", Operation: webhookOpVoid}); err != nil {
		t.Fatalf("payment webhook dispatch: %v", err)
	}

	reverted, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reverted.Status != models.OrderStatusPostedToQB {
		t.Errorf("status after payment void = %q, want %q", reverted.Status, models.OrderStatusPostedToQB)
	}
}

func TestVoidInvoicePreconditions(t *testing.T) {
	setupIntegrationDB(t)
	ctx := context.Background()

	fake := newFakeRemoteAPI()
	syncer := &Syncer{api: fake, logger: config.GetLogger()}

	buyer := seedAccount(t, "Sierra Foods")
	seller := seedAccount(t, "Orchard Direct")
	product := seedProduct(t, "Walnuts", "Chandler", "")

	// Not synced at all.
	unsynced := seedOrder(t, buyer, seller, product)
	if _, err := syncer.VoidOrderInvoice(ctx, unsynced.ID, ""); err != ErrNotSynced {
		t.Errorf("void unsynced order: err = %v, want ErrNotSynced", err)
	}

	// Posted as an estimate.
	estimateOrder := seedOrder(t, buyer, seller, product)
	if _, err := syncer.PushOrderToQBO(ctx, estimateOrder.ID, models.QboDocTypeEstimate); err != nil {
		t.Fatalf("push estimate: %v", err)
	}
	if _, err := syncer.VoidOrderInvoice(ctx, estimateOrder.ID, ""); err != ErrWrongDocType {
		t.Errorf("void estimate order: err = %v, want ErrWrongDocType", err)
	}

	// Posted as an invoice: void succeeds and clears the document reference.
	invoiceOrder := seedOrder(t, buyer, seller, product)
	result, err := syncer.PushOrderToQBO(ctx, invoiceOrder.ID, models.QboDocTypeInvoice)
	if err != nil {
		t.Fatalf("push invoice: %v", err)
	}
	message, err := syncer.VoidOrderInvoice(ctx, invoiceOrder.ID, "duplicate entry")
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if !strings.Contains(message, result.DocNumber) {
		t.Errorf("void message %q missing doc number %q", message, result.DocNumber)
	}

	voided, err := models.GetOrder(ctx, invoiceOrder.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if voided.QboDocId == nil || *voided.QboDocId != result.DocId {
		t.Error("document reference must survive the void")
	}
	if voided.Status != models.OrderStatusCancelled {
		t.Errorf("status = %q, want %q", voided.Status, models.OrderStatusCancelled)
	}
	if note := fake.invoices[result.DocId].PrivateNote; !strings.Contains(note, "duplicate entry") {
		t.Errorf("void note = %q", note)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("pacecrm-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("pacecrm-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=pacecrm_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
