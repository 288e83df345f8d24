// Package catalog はポケモンカタログサービスの読み取り専用クライアントを提供する。
// ランディングページのサンプル表示にのみ使用し、認証状態には影響しない。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/pokedex/internal/security"
)

const (
	itemPath = "/pokemon"
	// maxResponseSize はレスポンスボディの最大サイズ（64KB）。
	maxResponseSize = 64 << 10
)

// ErrNotFound は指定されたIDのアイテムがカタログに存在しないことを表す。
var ErrNotFound = errors.New("catalog item not found")

// 参照結果のラベル。メトリクスに使う。
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Item はカタログの1件分のポケモン。
type Item struct {
	ID            int    `json:"pokedex_number"`
	Name          string `json:"name"`
	PrimaryType   string `json:"primary_type"`
	SecondaryType string `json:"secondary_type"`
	Legendary     bool   `json:"is_legendary"`
	Mythical      bool   `json:"is_mythical"`
	Sprite        string `json:"sprite"`
	ShinySprite   string `json:"shiny_sprite"`
}

// LookupRecorder はカタログ参照の結果を記録するインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type LookupRecorder interface {
	RecordCatalogLookup(outcome string)
}

// Client はカタログサービスのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	sanitizer  security.TextSanitizer
	recorder   LookupRecorder
}

// NewClient はClientの新しいインスタンスを生成する。recorderはnilでもよい。
func NewClient(baseURL string, httpClient *http.Client, sanitizer security.TextSanitizer, recorder LookupRecorder, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sanitizer:  sanitizer,
		recorder:   recorder,
	}
}

// GetItem はIDを指定してアイテムを取得する。
// 存在しない場合はErrNotFoundを返す。それ以外の失敗は通信エラーとして返す。
func (c *Client) GetItem(ctx context.Context, id int) (*Item, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	return c.get(ctx, q)
}

// RandomItem はカタログからランダムに1件取得する。
// カタログが空の場合はErrNotFoundを返す。
func (c *Client) RandomItem(ctx context.Context) (*Item, error) {
	return c.get(ctx, nil)
}

func (c *Client) get(ctx context.Context, q url.Values) (*Item, error) {
	item, err := c.fetch(ctx, q)
	c.record(err)
	return item, err
}

func (c *Client) fetch(ctx context.Context, q url.Values) (*Item, error) {
	reqURL := c.baseURL + itemPath
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("catalog request failed",
			slog.String("url", reqURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("catalog returned error status",
			slog.String("url", reqURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		c.logger.Error("failed to parse catalog response",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}

	c.sanitize(&item)
	return &item, nil
}

// sanitize は表示用の文字列フィールドからタグを除去する。
// 画像URLはhttp(s)以外を捨てる。
func (c *Client) sanitize(item *Item) {
	item.Name = c.sanitizer.Sanitize(item.Name)
	item.PrimaryType = c.sanitizer.Sanitize(item.PrimaryType)
	item.SecondaryType = c.sanitizer.Sanitize(item.SecondaryType)
	item.Sprite = safeImageURL(item.Sprite)
	item.ShinySprite = safeImageURL(item.ShinySprite)
}

func safeImageURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return ""
	}
	return u.String()
}

func (c *Client) record(err error) {
	if c.recorder == nil {
		return
	}
	switch {
	case err == nil:
		c.recorder.RecordCatalogLookup(OutcomeFound)
	case errors.Is(err, ErrNotFound):
		c.recorder.RecordCatalogLookup(OutcomeNotFound)
	default:
		c.recorder.RecordCatalogLookup(OutcomeError)
	}
}
