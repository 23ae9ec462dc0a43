package momo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/logger"
)

const (
	tokenPath       = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath        = "/push/v1/processrequest"
	timestampFormat = "20060102150405"
	transactionType = "CustomerPayBillOnline"
)

var (
	errProviderNameRequired = errors.New("mobile money provider name is required")
	errNotConfigured        = errors.New("mobile money provider is not configured")
	errLoggerRequired       = errors.New("mobile money logger is required")
)

// Client speaks the shared push-payment protocol. Both mobile-money providers
// run the same token-fetch/password/push sequence; only credentials and
// endpoints differ, so one client type serves both.
type Client struct {
	cfg      config.MobileMoneyConfig
	provider string
	http     *http.Client
	logger   *logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient validates the provider configuration and builds a client.
func NewClient(cfg config.MobileMoneyConfig, provider string, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(provider) == "" {
		return nil, errProviderNameRequired
	}
	if logg == nil {
		return nil, errLoggerRequired
	}
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: %s", errNotConfigured, provider)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:      cfg,
		provider: provider,
		http:     &http.Client{Timeout: timeout},
		logger:   logg,
		now:      time.Now,
	}, nil
}

// Provider returns the label used for logging and metrics.
func (c *Client) Provider() string {
	if c == nil {
		return ""
	}
	return c.provider
}

// PushRequest describes one push-payment prompt sent to a customer's phone.
type PushRequest struct {
	AmountUnits int64
	PayerPhone  string
	Reference   string
	Description string
}

// PushResponse carries the provider's acknowledgement of a push prompt.
type PushResponse struct {
	RequestID   string
	Description string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

type pushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type pushResult struct {
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// Push asks the provider to prompt the payer's handset for the given amount.
func (c *Client) Push(ctx context.Context, req PushRequest) (*PushResponse, error) {
	if req.AmountUnits <= 0 {
		return nil, fmt.Errorf("push amount must be positive, got %d", req.AmountUnits)
	}
	phone := strings.TrimSpace(req.PayerPhone)
	if phone == "" {
		return nil, errors.New("payer phone is required")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampFormat)
	payload := pushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            req.AmountUnits,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   req.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding push payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building push request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s push request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s push request returned status %d", c.provider, resp.StatusCode)
	}

	var result pushResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding push response: %w", err)
	}
	if result.ResponseCode != "0" {
		return nil, fmt.Errorf("%s rejected push: %s", c.provider, result.ResponseDescription)
	}

	return &PushResponse{
		RequestID:   result.CheckoutRequestID,
		Description: result.ResponseDescription,
	}, nil
}

// accessToken returns a cached OAuth token, fetching a fresh one when expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s token request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s token request returned status %d", c.provider, resp.StatusCode)
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if strings.TrimSpace(decoded.AccessToken) == "" {
		return "", fmt.Errorf("%s token response missing access token", c.provider)
	}

	expiresIn, err := decoded.ExpiresIn.Int64()
	if err != nil || expiresIn <= 0 {
		expiresIn = 3600
	}

	c.token = decoded.AccessToken
	// renew one minute early to avoid racing the provider-side expiry
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn-60) * time.Second)
	return c.token, nil
}

func (c *Client) password(timestamp string) string {
	raw := c.cfg.ShortCode + c.cfg.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
