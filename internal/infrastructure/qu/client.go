// Package qu 提供 Qu POS 目录 API 客户端
package qu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"menu-search-api/internal/config"
	"menu-search-api/internal/domain/catalog"
	apperrors "menu-search-api/pkg/errors"
	"menu-search-api/pkg/logger"
	"menu-search-api/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("infrastructure.qu")

// Client Qu 目录 API 客户端
// Token 在进程内缓存，目录只在启动阶段抓取，不做中途刷新
type Client struct {
	baseURL           string
	clientID          string
	clientSecret      string
	scope             string
	integration       string
	locationID        string
	fulfillmentMethod string
	httpClient        *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient 创建 Qu 客户端
func NewClient(cfg *config.QuConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	scope := cfg.Scope
	if scope == "" {
		scope = "menu:*"
	}
	fulfillment := cfg.FulfillmentMethod
	if fulfillment == "" {
		fulfillment = "1"
	}
	return &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		clientID:          cfg.ClientID,
		clientSecret:      cfg.ClientSecret,
		scope:             scope,
		integration:       cfg.Integration,
		locationID:        cfg.LocationID,
		fulfillmentMethod: fulfillment,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// quError 上游错误条目
type quError struct {
	Code    int    `json:"code"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// menusResponse /sales/menus 响应信封
type menusResponse struct {
	Value   *catalog.Tree `json:"value"`
	Succeed *bool         `json:"succeed"`
	Errors  []quError     `json:"errors"`
}

// Token 获取访问令牌，进程内缓存
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" {
		return c.accessToken, nil
	}

	ctx, span := tracer.Start(ctx, "qu.Token")
	defer span.End()

	start := time.Now()
	token, expiry, err := c.fetchToken(ctx)
	metrics.UpstreamRequestDuration.WithLabelValues("token").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestTotal.WithLabelValues("token", "error").Inc()
		span.RecordError(err)
		return "", err
	}
	metrics.UpstreamRequestTotal.WithLabelValues("token", "ok").Inc()

	c.accessToken = token
	c.tokenExpiry = expiry
	logger.Info(ctx, "obtained qu access token", "expires_at", expiry.Format(time.RFC3339))
	return c.accessToken, nil
}

// TokenExpiry 返回已缓存令牌的过期时间，未取得令牌时为零值
func (c *Client) TokenExpiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenExpiry
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Time, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"scope":         c.scope,
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return "", time.Time{}, apperrors.Wrap(err, apperrors.CodeAuthFailed, "failed to build token request")
		}
	}
	if err := form.Close(); err != nil {
		return "", time.Time{}, apperrors.Wrap(err, apperrors.CodeAuthFailed, "failed to build token request")
	}

	tokenURL := c.baseURL + "/authentication/oauth2/access-token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, &body)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(err, apperrors.CodeAuthFailed, "failed to create token request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(err, apperrors.CodeAuthFailed, "token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, apperrors.New(apperrors.CodeAuthFailed, "token request rejected").
			WithDetail(fmt.Sprintf("status=%d", resp.StatusCode))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", time.Time{}, apperrors.Wrap(err, apperrors.CodeAuthFailed, "failed to decode token response")
	}
	if tokenResp.AccessToken == "" {
		return "", time.Time{}, apperrors.New(apperrors.CodeAuthFailed, "token response missing access_token")
	}

	return tokenResp.AccessToken, tokenExpiry(tokenResp), nil
}

// Menus 抓取当前门店的完整菜单快照
func (c *Client) Menus(ctx context.Context) (*catalog.Tree, error) {
	ctx, span := tracer.Start(ctx, "qu.Menus")
	defer span.End()

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	menusURL := c.baseURL + "/sales/menus"
	raw, err := c.doCatalogGet(ctx, menusURL, token)
	metrics.UpstreamRequestDuration.WithLabelValues("menus").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestTotal.WithLabelValues("menus", "error").Inc()
		span.RecordError(err)
		return nil, err
	}

	var envelope menusResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		metrics.UpstreamRequestTotal.WithLabelValues("menus", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeParseFailed, "failed to parse menus response")
	}

	if envelope.Succeed != nil && !*envelope.Succeed {
		metrics.UpstreamRequestTotal.WithLabelValues("menus", "error").Inc()
		for _, e := range envelope.Errors {
			logger.Error(ctx, "qu menus error", nil, "code", e.Code, "key", e.Key, "message", e.Message)
		}
		return nil, apperrors.New(apperrors.CodeUpstreamError, "qu menus request returned errors")
	}
	if envelope.Value == nil {
		metrics.UpstreamRequestTotal.WithLabelValues("menus", "error").Inc()
		return nil, apperrors.New(apperrors.CodeParseFailed, "qu menus response missing value")
	}

	metrics.UpstreamRequestTotal.WithLabelValues("menus", "ok").Inc()
	span.SetAttributes(
		attribute.String("snapshot_id", envelope.Value.SnapshotID),
		attribute.Int("categories", len(envelope.Value.Categories)),
	)
	return envelope.Value, nil
}

// Descendants 抓取单个菜单项的修饰项子树
func (c *Client) Descendants(ctx context.Context, snapshotID, itemPathKey string) (*catalog.Descendants, error) {
	ctx, span := tracer.Start(ctx, "qu.Descendants",
		trace.WithAttributes(attribute.String("item_path_key", itemPathKey)))
	defer span.End()

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	descendantsURL := fmt.Sprintf("%s/sales/menus/%s/items/%s/descendants",
		c.baseURL, url.PathEscape(snapshotID), url.PathEscape(itemPathKey))
	raw, err := c.doCatalogGet(ctx, descendantsURL, token)
	metrics.UpstreamRequestDuration.WithLabelValues("descendants").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestTotal.WithLabelValues("descendants", "error").Inc()
		span.RecordError(err)
		return nil, err
	}

	var descendants catalog.Descendants
	if err := json.Unmarshal(raw, &descendants); err != nil {
		metrics.UpstreamRequestTotal.WithLabelValues("descendants", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeParseFailed, "failed to parse descendants response")
	}

	metrics.UpstreamRequestTotal.WithLabelValues("descendants", "ok").Inc()
	return &descendants, nil
}

// doCatalogGet 发起带认证头和门店参数的目录 GET 请求
func (c *Client) doCatalogGet(ctx context.Context, rawURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamError, "failed to create catalog request")
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Integration", c.integration)

	query := req.URL.Query()
	query.Set("LocationId", c.locationID)
	query.Set("FulfillmentMethod", c.fulfillmentMethod)
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamError, "catalog request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.New(apperrors.CodeAuthFailed, "catalog request rejected").
			WithDetail(fmt.Sprintf("status=%d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.New(apperrors.CodeUpstreamError, "catalog request failed").
			WithDetail(fmt.Sprintf("status=%d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamError, "failed to read catalog response")
	}
	return raw, nil
}
