package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "saldo/internal/log"
	"saldo/internal/metrics"
)

const (
	DefaultTimeout     = 15 * time.Second
	defaultDescription = "Saldo subscription"
	maxErrorBody       = 64 << 10
)

// AsaasClient talks to an Asaas-compatible REST API. It never retries: a
// resubmitted card charge could bill twice.
type AsaasClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewAsaasClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics) *AsaasClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &AsaasClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		now:        time.Now,
	}
}

type asaasErrorBody struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

type customerList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *AsaasClient) SearchCustomerByTaxID(ctx context.Context, taxID string) (string, bool, error) {
	q := url.Values{"cpfCnpj": {DigitsOnly(taxID)}}
	var out customerList
	if err := c.do(ctx, "search_customer", http.MethodGet, "/customers?"+q.Encode(), nil, &out, "failed to look up customer"); err != nil {
		return "", false, err
	}
	if len(out.Data) == 0 {
		return "", false, nil
	}
	return out.Data[0].ID, true, nil
}

func (c *AsaasClient) CreateCustomer(ctx context.Context, h Holder) (string, error) {
	body := map[string]any{
		"name":                 h.Name,
		"email":                h.Email,
		"cpfCnpj":              DigitsOnly(h.TaxID),
		"phone":                h.Phone,
		"mobilePhone":          h.MobilePhone,
		"notificationDisabled": false,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "create_customer", http.MethodPost, "/customers", body, &out, "failed to create customer"); err != nil {
		return "", err
	}
	return out.ID, nil
}

type chargeResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoiceUrl"`
}

// CreatePayment creates a one-off charge due tomorrow.
func (c *AsaasClient) CreatePayment(ctx context.Context, r ChargeRequest) (ChargeResult, error) {
	billing := r.BillingType
	if billing == "" {
		billing = BillingPIX
	}
	body := map[string]any{
		"customer":    r.CustomerID,
		"billingType": billing,
		"value":       r.Amount,
		"dueDate":     c.tomorrow(),
		"description": orDefault(r.Description, defaultDescription),
		"remoteIp":    orDefault(r.RemoteIP, "0.0.0.0"),
	}
	var out chargeResponse
	if err := c.do(ctx, "create_payment", http.MethodPost, "/payments", body, &out, "failed to create charge"); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{ID: out.ID, Status: out.Status, InvoiceURL: out.InvoiceURL}, nil
}

// CreateSubscription creates a recurring credit card charge starting tomorrow.
func (c *AsaasClient) CreateSubscription(ctx context.Context, r ChargeRequest) (ChargeResult, error) {
	body := map[string]any{
		"customer":    r.CustomerID,
		"billingType": BillingCreditCard,
		"value":       r.Amount,
		"nextDueDate": c.tomorrow(),
		"description": orDefault(r.Description, defaultDescription),
		"cycle":       orDefault(r.Cycle, CycleMonthly),
		"remoteIp":    orDefault(r.RemoteIP, "0.0.0.0"),
	}
	if r.Card != nil && r.CardHolder != nil {
		body["creditCard"] = r.Card
		body["creditCardHolderInfo"] = r.CardHolder
	}
	var out chargeResponse
	if err := c.do(ctx, "create_subscription", http.MethodPost, "/subscriptions", body, &out, "failed to create subscription"); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{ID: out.ID, Status: out.Status, InvoiceURL: out.InvoiceURL, Subscription: true}, nil
}

func (c *AsaasClient) do(ctx context.Context, op, method, path string, in, out any, fallback string) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.GatewayCalls.WithLabelValues(op, outcome).Inc()
		c.metrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Message: fallback, Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Message: fallback, Err: err}
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := "payment gateway unreachable"
		var netErr interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			msg = "payment gateway timed out"
		}
		slog.ErrorContext(ctx, "Payment gateway request failed",
			applog.FieldComponent, applog.ComponentPayment,
			applog.FieldOperation, op,
			applog.FieldError, err)
		return &Error{Op: op, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fallback
		var eb asaasErrorBody
		if json.Unmarshal(raw, &eb) == nil && len(eb.Errors) > 0 && eb.Errors[0].Description != "" {
			msg = eb.Errors[0].Description
		}
		slog.WarnContext(ctx, "Payment gateway rejected request",
			applog.FieldComponent, applog.ComponentPayment,
			applog.FieldOperation, op,
			applog.FieldStatusCode, resp.StatusCode,
			"gateway_message", msg)
		return &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Op: op, Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func (c *AsaasClient) tomorrow() string {
	return c.now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var _ Gateway = (*AsaasClient)(nil)
