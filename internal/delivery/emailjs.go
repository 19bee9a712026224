package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultEndpoint is the EmailJS REST send endpoint.
	DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

	// DefaultTimeout bounds a single send when the config leaves it
	// unset.
	DefaultTimeout = 15 * time.Second

	// maxResponseBody caps how much of the response text is kept.
	maxResponseBody = 64 * 1024
)

// SendError is returned when the email service answers with a non-2xx
// status.
type SendError struct {
	Status int
	Text   string
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("email service returned %d: %s", e.Status, e.Text)
}

// EmailJSConfig configures an EmailJSClient.
type EmailJSConfig struct {
	// Endpoint overrides DefaultEndpoint, mostly for tests.
	Endpoint string

	// Credentials are sent with every request.
	Credentials Credentials

	// Timeout bounds each send. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// EmailJSClient sends messages through the EmailJS REST API.
type EmailJSClient struct {
	endpoint string
	creds    Credentials
	http     *http.Client
}

// sendRequest is the JSON body of an EmailJS send call.
type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams TemplateParams `json:"template_params"`
	AccessToken    string         `json:"accessToken,omitempty"`
}

// NewEmailJSClient validates the credentials and builds the client.
func NewEmailJSClient(cfg *EmailJSConfig) (*EmailJSClient, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &EmailJSClient{
		endpoint: endpoint,
		creds:    cfg.Credentials,
		http:     httpClient,
	}, nil
}

// Send posts the message and turns the response into a receipt.
//
// NOTE: this is part of the Client interface.
func (c *EmailJSClient) Send(ctx context.Context,
	params TemplateParams) fn.Result[Receipt] {

	body, err := json.Marshal(sendRequest{
		ServiceID:      c.creds.ServiceID,
		TemplateID:     c.creds.TemplateID,
		UserID:         c.creds.PublicKey,
		TemplateParams: params,
		AccessToken:    c.creds.PrivateKey,
	})
	if err != nil {
		return fn.Err[Receipt](fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return fn.Err[Receipt](fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fn.Err[Receipt](fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fn.Err[Receipt](fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fn.Err[Receipt](&SendError{
			Status: resp.StatusCode,
			Text:   strings.TrimSpace(string(text)),
		})
	}

	return fn.Ok(Receipt{
		Status: resp.StatusCode,
		Text:   strings.TrimSpace(string(text)),
	})
}

var _ Client = (*EmailJSClient)(nil)
