// Package fatsecret FatSecret Platform API 客戶端：食物搜尋、食物詳細資料、食譜搜尋與食譜詳細資料。
package fatsecret

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

// 提前刷新 token 的緩衝
const tokenRefreshSkew = time.Minute

// Client FatSecret 客戶端，OAuth2 client credentials 取得的 token 會快取到過期前
type Client struct {
	cfg  config.FatSecretConfig
	http *resty.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	now         func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type apiError struct {
	Error *struct {
		Code    json.Number `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

// NewClient 創建 FatSecret 客戶端
func NewClient(cfg config.FatSecretConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		cfg:  cfg,
		http: client,
		now:  time.Now,
	}
}

// token 取得有效的 access token
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
			"scope":      c.cfg.Scope,
		}).
		Post(c.cfg.TokenURL)
	common.LogProviderCall("fatsecret", "oauth.token", time.Since(start), err)
	if err != nil {
		return "", common.Wrap(common.ErrProviderDown, fmt.Errorf("fatsecret token request failed: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return "", common.Wrap(common.ErrProviderDown, fmt.Errorf("fatsecret token endpoint returned %d", resp.StatusCode()))
	}

	var tr tokenResponse
	if err := common.ParseJSONBytes(resp.Body(), &tr); err != nil || tr.AccessToken == "" {
		return "", common.Wrap(common.ErrMalformedResponse, fmt.Errorf("fatsecret token response: %v", err))
	}

	ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenRefreshSkew
	if ttl <= 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}
	c.accessToken = tr.AccessToken
	c.expiresAt = c.now().Add(ttl)
	return c.accessToken, nil
}

// call 呼叫 server.api 的指定 method 並解析回應
func (c *Client) call(ctx context.Context, method string, params map[string]string, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		SetQueryParam("method", method).
		SetQueryParam("format", "json").
		Get(c.cfg.BaseURL)
	common.LogProviderCall("fatsecret", method, time.Since(start), err)
	if err != nil {
		return common.Wrap(common.ErrProviderDown, fmt.Errorf("fatsecret %s failed: %w", method, err))
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode() != http.StatusOK {
		return common.Wrap(common.ErrProviderDown, fmt.Errorf("fatsecret %s returned %d", method, resp.StatusCode()))
	}

	// FatSecret 以 200 回傳錯誤物件
	var ae apiError
	if err := json.Unmarshal(resp.Body(), &ae); err == nil && ae.Error != nil {
		return common.Wrap(common.ErrProviderDown, fmt.Errorf("fatsecret %s error %s: %s", method, ae.Error.Code, ae.Error.Message))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return common.Wrap(common.ErrMalformedResponse, fmt.Errorf("fatsecret %s: %w", method, err))
	}
	return nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}
