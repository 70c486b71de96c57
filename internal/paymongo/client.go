package paymongo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"membership/internal/payment"
)

// DefaultBaseURL is the PayMongo REST endpoint.
const DefaultBaseURL = "https://api.paymongo.com"

// Client creates PayMongo payment links.
type Client struct {
	BaseURL   string
	SecretKey string
	HTTP      *http.Client
	Skip      bool
}

// New creates a client. With skip set, links are faked locally.
func New(baseURL, secretKey string, skip bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		Skip:      skip,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

type linkAttributes struct {
	Amount        int      `json:"amount"`
	Currency      string   `json:"currency,omitempty"`
	Description   string   `json:"description"`
	Remarks       string   `json:"remarks,omitempty"`
	PaymentMethod []string `json:"payment_method_types,omitempty"`
	CheckoutURL   string   `json:"checkout_url,omitempty"`
	ReferenceNo   string   `json:"reference_number,omitempty"`
}

type linkEnvelope struct {
	Data struct {
		ID         string         `json:"id,omitempty"`
		Attributes linkAttributes `json:"attributes"`
	} `json:"data"`
}

// CreateLink posts a new payment link and returns its checkout URL and
// reference number.
func (c *Client) CreateLink(ctx context.Context, in payment.LinkRequest) (string, string, error) {
	if in.Amount <= 0 {
		return "", "", fmt.Errorf("paymongo: amount must be positive")
	}
	if c.Skip {
		ref := strings.ToUpper(uuid.NewString()[:8])
		return "https://pm.link/mock/" + ref, ref, nil
	}

	var env linkEnvelope
	env.Data.Attributes = linkAttributes{
		Amount:        in.Amount,
		Currency:      "PHP",
		Description:   in.Description,
		Remarks:       in.Remarks,
		PaymentMethod: []string{"gcash"},
	}
	body, err := json.Marshal(env)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/links", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.SecretKey, "")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("paymongo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", "", fmt.Errorf("paymongo: error %s: %s", resp.Status, string(msg))
	}

	var out linkEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("paymongo: decode response: %w", err)
	}
	if out.Data.Attributes.CheckoutURL == "" {
		return "", "", fmt.Errorf("paymongo: response has no checkout url")
	}
	return out.Data.Attributes.CheckoutURL, out.Data.Attributes.ReferenceNo, nil
}
