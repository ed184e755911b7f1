// Package service implements the IG Markets REST client used by the
// pipeline: session login, market search and details, positions, working
// orders, order placement and deal confirmation.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"alert_bot/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	demoBaseURL = "https://demo-api.ig.com/gateway/deal"
	liveBaseURL = "https://api.ig.com/gateway/deal"
)

type Client struct {
	cfg     *config.Config
	http    *http.Client
	baseURL string

	mu            sync.Mutex
	cst           string
	securityToken string
}

func NewClient(cfg *config.Config) *Client {
	base := liveBaseURL
	if strings.EqualFold(cfg.IG.AccountType, "DEMO") {
		base = demoBaseURL
	}
	timeout := cfg.IG.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		baseURL: base,
	}
}

// APIError is a non-2xx response from IG. The broker's reason is carried
// verbatim so callers can surface it unchanged.
type APIError struct {
	StatusCode int
	Code       string
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ig: http %d: %s: %s", e.StatusCode, e.Code, e.Reason)
	}
	return fmt.Sprintf("ig: http %d: %s", e.StatusCode, e.Code)
}

func (c *Client) tokens() (cst, sec string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cst, c.securityToken
}

func (c *Client) setTokens(cst, sec string) {
	c.mu.Lock()
	c.cst = cst
	c.securityToken = sec
	c.mu.Unlock()
}

func (c *Client) hasSession() bool {
	cst, sec := c.tokens()
	return cst != "" && sec != ""
}

// do performs one authenticated call. On a 401 the session is re-established
// once and the call retried.
func (c *Client) do(ctx context.Context, method, path, version string, body any, out any) error {
	if !c.hasSession() {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	err := c.doOnce(ctx, method, path, version, body, out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		if err := c.Login(ctx); err != nil {
			return err
		}
		return c.doOnce(ctx, method, path, version, body, out)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path, version string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	c.setHeaders(req, version)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			ErrorCode string `json:"errorCode"`
			Reason    string `json:"reason"`
		}
		if sonic.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.ErrorCode
			apiErr.Reason = envelope.Reason
		}
		if apiErr.Code == "" {
			apiErr.Code = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out != nil {
		if err := sonic.Unmarshal(raw, out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, version string) {
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json; charset=UTF-8")
	req.Header.Set("X-IG-API-KEY", c.cfg.IG.APIKey)
	req.Header.Set("Version", version)

	cst, sec := c.tokens()
	if cst != "" {
		req.Header.Set("CST", cst)
	}
	if sec != "" {
		req.Header.Set("X-SECURITY-TOKEN", sec)
	}
}
