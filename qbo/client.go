package qbo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	minorVersion     = "75"
	maxRetryAttempts = 5
)

type apiClient struct {
	baseURL     string
	realmId     string
	accessToken string
	http        *http.Client
	retryWait   time.Duration
}

func apiBaseURL() string {
	if v := strings.TrimSpace(os.Getenv("QBO_API_BASE_URL")); v != "" {
		return strings.TrimRight(v, "/")
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("QBO_ENVIRONMENT")), "production") {
		return "https://quickbooks.api.intuit.com"
	}
	return "https://sandbox-quickbooks.api.intuit.com"
}

func newAPIClient(accessToken, realmId string) *apiClient {
	return &apiClient{
		baseURL:     apiBaseURL(),
		realmId:     realmId,
		accessToken: accessToken,
		http:        &http.Client{Timeout: 30 * time.Second},
		retryWait:   5 * time.Second,
	}
}

// do performs one API request with the bounded 429 retry loop. The wait comes
// from the Retry-After header when present, otherwise starts at 5s and doubles.
// After maxRetryAttempts the call fails with ErrRateLimited.
func (c *apiClient) do(ctx context.Context, op, method, path string, params url.Values, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/v3/company/%s%s", c.baseURL, c.realmId, path)
	if params == nil {
		params = url.Values{}
	}
	params.Set("minorversion", minorVersion)
	endpoint = endpoint + "?" + params.Encode()

	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	wait := c.retryWait
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		var reqBody io.Reader
		if bodyBytes != nil {
			reqBody = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetryAttempts {
				return fmt.Errorf("%s: %w", op, ErrRateLimited)
			}
			var sleep time.Duration
			sleep, wait = retryDelay(resp.Header.Get("Retry-After"), wait)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(sleep):
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &RemoteError{Op: op, Status: resp.StatusCode, Message: faultMessage(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("%s: decode response: %w", op, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s: %w", op, ErrRateLimited)
}

// retryDelay picks the sleep before a 429 retry: the Retry-After header when
// it parses to a positive number of seconds, otherwise the current wait. The
// wait doubles whenever the header did not decide the delay.
func retryDelay(retryAfter string, wait time.Duration) (sleep, next time.Duration) {
	if ra := strings.TrimSpace(retryAfter); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second, wait
		}
	}
	return wait, wait * 2
}

func faultMessage(body []byte) string {
	var fault faultEnvelope
	if err := json.Unmarshal(body, &fault); err == nil && len(fault.Fault.Error) > 0 {
		e := fault.Fault.Error[0]
		if e.Detail != "" {
			return e.Message + ": " + e.Detail
		}
		return e.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

// escapeQueryValue escapes single quotes for the query grammar.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}

func (c *apiClient) CreateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	var env customerEnvelope
	if err := c.do(ctx, "create customer", http.MethodPost, "/customer", nil, customer, &env); err != nil {
		return nil, err
	}
	return env.Customer, nil
}

func (c *apiClient) UpdateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	var env customerEnvelope
	if err := c.do(ctx, "update customer", http.MethodPost, "/customer", nil, customer, &env); err != nil {
		return nil, err
	}
	return env.Customer, nil
}

func (c *apiClient) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var env customerEnvelope
	if err := c.do(ctx, "get customer", http.MethodGet, "/customer/"+id, nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Customer, nil
}

// FindCustomerByName looks up a customer by exact DisplayName. Returns nil on
// no match; lookup failures are also treated as a miss so the caller can fall
// through to a create.
func (c *apiClient) FindCustomerByName(ctx context.Context, displayName string) *Customer {
	query := fmt.Sprintf("SELECT * FROM Customer WHERE DisplayName = '%s'", escapeQueryValue(displayName))
	params := url.Values{"query": {query}}
	var env queryEnvelope
	if err := c.do(ctx, "query customer", http.MethodGet, "/query", params, nil, &env); err != nil {
		return nil
	}
	if len(env.QueryResponse.Customer) == 0 {
		return nil
	}
	return &env.QueryResponse.Customer[0]
}

func (c *apiClient) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	var env itemEnvelope
	if err := c.do(ctx, "create item", http.MethodPost, "/item", nil, item, &env); err != nil {
		return nil, err
	}
	return env.Item, nil
}

func (c *apiClient) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	var env itemEnvelope
	if err := c.do(ctx, "update item", http.MethodPost, "/item", nil, item, &env); err != nil {
		return nil, err
	}
	return env.Item, nil
}

func (c *apiClient) GetItem(ctx context.Context, id string) (*Item, error) {
	var env itemEnvelope
	if err := c.do(ctx, "get item", http.MethodGet, "/item/"+id, nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Item, nil
}

// FindItemByName mirrors FindCustomerByName for items.
func (c *apiClient) FindItemByName(ctx context.Context, name string) *Item {
	query := fmt.Sprintf("SELECT * FROM Item WHERE Name = '%s'", escapeQueryValue(name))
	params := url.Values{"query": {query}}
	var env queryEnvelope
	if err := c.do(ctx, "query item", http.MethodGet, "/query", params, nil, &env); err != nil {
		return nil
	}
	if len(env.QueryResponse.Item) == 0 {
		return nil
	}
	return &env.QueryResponse.Item[0]
}

func (c *apiClient) CreateInvoice(ctx context.Context, invoice *Invoice) (*Invoice, error) {
	var env invoiceEnvelope
	if err := c.do(ctx, "create invoice", http.MethodPost, "/invoice", nil, invoice, &env); err != nil {
		return nil, err
	}
	return env.Invoice, nil
}

func (c *apiClient) UpdateInvoice(ctx context.Context, invoice *Invoice) (*Invoice, error) {
	var env invoiceEnvelope
	if err := c.do(ctx, "update invoice", http.MethodPost, "/invoice", nil, invoice, &env); err != nil {
		return nil, err
	}
	return env.Invoice, nil
}

func (c *apiClient) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var env invoiceEnvelope
	if err := c.do(ctx, "get invoice", http.MethodGet, "/invoice/"+id, nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Invoice, nil
}

// VoidInvoice voids by id with the current sync token. The note survives the
// void and marks who asked for it.
func (c *apiClient) VoidInvoice(ctx context.Context, id, syncToken, note string) error {
	payload := &Invoice{
		Id:          id,
		SyncToken:   syncToken,
		Sparse:      true,
		PrivateNote: note,
	}
	params := url.Values{"operation": {"void"}}
	return c.do(ctx, "void invoice", http.MethodPost, "/invoice", params, payload, nil)
}

func (c *apiClient) CreateEstimate(ctx context.Context, estimate *Estimate) (*Estimate, error) {
	var env estimateEnvelope
	if err := c.do(ctx, "create estimate", http.MethodPost, "/estimate", nil, estimate, &env); err != nil {
		return nil, err
	}
	return env.Estimate, nil
}

func (c *apiClient) UpdateEstimate(ctx context.Context, estimate *Estimate) (*Estimate, error) {
	var env estimateEnvelope
	if err := c.do(ctx, "update estimate", http.MethodPost, "/estimate", nil, estimate, &env); err != nil {
		return nil, err
	}
	return env.Estimate, nil
}

func (c *apiClient) GetEstimate(ctx context.Context, id string) (*Estimate, error) {
	var env estimateEnvelope
	if err := c.do(ctx, "get estimate", http.MethodGet, "/estimate/"+id, nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Estimate, nil
}

func (c *apiClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var env paymentEnvelope
	if err := c.do(ctx, "get payment", http.MethodGet, "/payment/"+id, nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Payment, nil
}
