package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/storewizard/pkg/domain"
)

// DefaultClientTimeout bounds a single remote check.
const DefaultClientTimeout = 5 * time.Second

// ValidatorClient implements ports.RemoteValidator against POST /validate/unique.
type ValidatorClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ClientOption configures the ValidatorClient.
type ClientOption func(*ValidatorClient)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(v *ValidatorClient) {
		v.HTTPClient = c
	}
}

// NewValidatorClient creates a client for the API rooted at baseURL.
func NewValidatorClient(baseURL string, opts ...ClientOption) *ValidatorClient {
	c := &ValidatorClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckUnique asks the remote API whether value is free for field.
// Transport failures and unexpected statuses are returned as errors.
func (c *ValidatorClient) CheckUnique(ctx context.Context, scope domain.ScopeKind, scopeID, field string, value any) (domain.RemoteResult, error) {
	body, err := json.Marshal(UniqueRequest{Scope: scope, ScopeID: scopeID, Field: field, Value: value})
	if err != nil {
		return domain.RemoteResult{}, fmt.Errorf("failed to encode unique check: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/validate/unique", bytes.NewReader(body))
	if err != nil {
		return domain.RemoteResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.RemoteResult{}, fmt.Errorf("remote validator unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RemoteResult{}, fmt.Errorf("remote validator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result domain.RemoteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.RemoteResult{}, fmt.Errorf("failed to decode unique check: %w", err)
	}
	return result, nil
}
