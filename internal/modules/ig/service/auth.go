package service

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"alert_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Login opens an IG dealing session. The session tokens come back as the
// CST and X-SECURITY-TOKEN response headers, not in the body.
func (c *Client) Login(ctx context.Context) error {
	payload, err := sonic.Marshal(map[string]any{
		"identifier":        c.cfg.IG.Username,
		"password":          c.cfg.IG.Password,
		"encryptedPassword": false,
	})
	if err != nil {
		return errors.Wrap(err, "marshal login")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build login request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json; charset=UTF-8")
	req.Header.Set("X-IG-API-KEY", c.cfg.IG.APIKey)
	req.Header.Set("Version", "2")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "login request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			ErrorCode string `json:"errorCode"`
		}
		if sonic.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.ErrorCode
		}
		return errors.Wrap(apiErr, "login")
	}

	cst := resp.Header.Get("CST")
	sec := resp.Header.Get("X-SECURITY-TOKEN")
	if cst == "" || sec == "" {
		return errors.New("login: authentication tokens missing from response")
	}
	c.setTokens(cst, sec)

	logger.Info("IG session opened (%s account)", c.cfg.IG.AccountType)
	return nil
}
