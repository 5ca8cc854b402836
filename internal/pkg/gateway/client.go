package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/env"
	"github.com/acsk/AppCheckin-sub000/internal/pkg/membership"
	"github.com/shopspring/decimal"
)

const defaultAPIBaseURL = "https://api.mercadopago.com"

// Client fetches payment and preapproval records from the payment gateway's
// REST API. It satisfies membership.Gateway. Calls are not retried here: the
// gateway redelivers webhooks on its own schedule, so a failed fetch simply
// surfaces as a transient processing error.
type Client struct {
	AccessToken string
	APIBaseURL  string

	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		AccessToken: strings.TrimSpace(env.GetEnv("GATEWAY_ACCESS_TOKEN", "")),
		APIBaseURL:  strings.TrimRight(env.GetEnv("GATEWAY_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type rawPayment struct {
	ID                json.Number       `json:"id"`
	Status            string            `json:"status"`
	ExternalReference string            `json:"external_reference"`
	TransactionAmount decimal.Decimal   `json:"transaction_amount"`
	PaymentMethodID   string            `json:"payment_method_id"`
	PaymentTypeID     string            `json:"payment_type_id"`
	Metadata          map[string]any    `json:"metadata"`
}

type rawSubscription struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	ExternalReference string          `json:"external_reference"`
	AutoRecurring     struct {
		TransactionAmount decimal.Decimal `json:"transaction_amount"`
	} `json:"auto_recurring"`
	NextPaymentDate *time.Time     `json:"next_payment_date"`
	Metadata        map[string]any `json:"metadata"`
}

// FetchPayment retrieves the full payment detail for a payment event.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*membership.PaymentRecord, error) {
	body, err := c.get(ctx, "/v1/payments/"+strings.TrimSpace(paymentID))
	if err != nil {
		return nil, err
	}

	var raw rawPayment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode payment %s: %w", paymentID, err)
	}
	if raw.ID.String() == "" {
		return nil, errors.New("payment response missing id")
	}

	return &membership.PaymentRecord{
		ID:                raw.ID.String(),
		Status:            raw.Status,
		ExternalReference: raw.ExternalReference,
		Amount:            raw.TransactionAmount,
		PaymentMethodID:   raw.PaymentMethodID,
		PaymentTypeID:     raw.PaymentTypeID,
		Metadata:          flattenMetadata(raw.Metadata),
	}, nil
}

// FetchSubscription retrieves the recurring-agreement detail for a
// preapproval event.
func (c *Client) FetchSubscription(ctx context.Context, subscriptionID string) (*membership.SubscriptionRecord, error) {
	body, err := c.get(ctx, "/preapproval/"+strings.TrimSpace(subscriptionID))
	if err != nil {
		return nil, err
	}

	var raw rawSubscription
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode preapproval %s: %w", subscriptionID, err)
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, errors.New("preapproval response missing id")
	}

	return &membership.SubscriptionRecord{
		ID:                raw.ID,
		Status:            raw.Status,
		ExternalReference: raw.ExternalReference,
		Amount:            raw.AutoRecurring.TransactionAmount,
		NextChargeAt:      raw.NextPaymentDate,
		Metadata:          flattenMetadata(raw.Metadata),
	}, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(c.AccessToken) == "" {
		return nil, errors.New("GATEWAY_ACCESS_TOKEN is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway request %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

// flattenMetadata renders the gateway's loosely-typed metadata object into
// the string map the resolver consumes. Numeric ids arrive as JSON numbers.
func flattenMetadata(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strings.TrimSuffix(fmt.Sprintf("%.0f", val), ".")
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = fmt.Sprintf("%t", val)
		}
	}
	return out
}
