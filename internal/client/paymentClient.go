package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devLudociel/MiEcommerce-sub000/internal/config"
)

// Event types delivered by the payment processor.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// signatureTolerance bounds how old a webhook timestamp may be before the
// delivery is rejected as a replay.
const signatureTolerance = 5 * time.Minute

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Charge is the processor's payment-intent object.
type Charge struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"` // minor units
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Metadata     map[string]string `json:"metadata"`
}

// Event is a webhook delivery after signature verification.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Charge `json:"object"`
	} `json:"data"`
}

type PaymentClient interface {
	// CreateCharge registers a charge intent for the given minor-unit amount.
	// The amount always comes from the pricing engine, never from a client.
	CreateCharge(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*Charge, error)
	RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error)
	// VerifyWebhook checks the signature header against the raw body and
	// returns the decoded event. Any failure means the delivery is rejected
	// without state change.
	VerifyWebhook(rawBody []byte, signatureHeader string) (*Event, error)
}

type paymentClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	secretKey     string
	webhookSecret string
	now           func() time.Time
}

func NewPaymentClient(cfg *config.Payment) PaymentClient {
	return &paymentClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    cfg.BaseApiURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		now:           time.Now,
	}
}

func (c *paymentClientImpl) CreateCharge(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*Charge, error) {
	payload := map[string]interface{}{
		"amount":   amountMinorUnits,
		"currency": currency,
		"metadata": metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/payment_intents",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("processor error %d: %s", resp.StatusCode, string(b))
	}

	var charge Charge
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return nil, fmt.Errorf("decode processor response: %w", err)
	}
	return &charge, nil
}

func (c *paymentClientImpl) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	url := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseApiURL, chargeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("processor error %d: %s", resp.StatusCode, string(b))
	}

	var charge Charge
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return nil, fmt.Errorf("decode processor response: %w", err)
	}
	return &charge, nil
}

// VerifyWebhook expects a header of the form "t=<unix>,v1=<hex hmac>" where
// the hmac is SHA-256 over "<unix>.<raw body>" keyed with the shared secret.
func (c *paymentClientImpl) VerifyWebhook(rawBody []byte, signatureHeader string) (*Event, error) {
	timestamp, signature, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	age := c.now().Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if event.ID == "" {
		return nil, fmt.Errorf("webhook payload missing event id")
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, string, error) {
	var timestamp int64
	var signature string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signature = value
		}
	}
	if timestamp == 0 || signature == "" {
		return 0, "", ErrInvalidSignature
	}
	return timestamp, signature, nil
}
