package sqlproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"neuroforge/internal/infra"
)

// Options configures the SQL-proxy client.
type Options struct {
	URL         string
	BearerToken string
	HTTPClient  *http.Client
	Logger      *infra.Logger
}

// Client speaks to the remote SQL proxy: one POST per statement carrying a
// JSON {sql, params} body, authenticated with a static bearer token. The
// proxy owns the actual database; this layer is deliberately thin.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *infra.Logger
}

// Result is the proxy's response envelope. Data carries SELECT rows keyed by
// column name; InsertID and AffectedRows carry write outcomes.
type Result struct {
	Data         []map[string]any `json:"data"`
	InsertID     int64            `json:"insert_id"`
	AffectedRows int64            `json:"affected_rows"`
	Error        string           `json:"error"`
}

type statement struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// NewClient constructs a proxy client. URL and token are required.
func NewClient(opts Options) (*Client, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("sqlproxy: url is required")
	}
	token := strings.TrimSpace(opts.BearerToken)
	if token == "" {
		return nil, errors.New("sqlproxy: bearer token is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{url: url, token: token, httpClient: httpClient, logger: logger}, nil
}

// Query runs one parameterized statement through the proxy.
func (c *Client) Query(ctx context.Context, sql string, params ...any) (*Result, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(statement{SQL: sql, Params: params})
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: encode statement: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug().Str("sql", firstWords(sql, 4)).Msg("sqlproxy: exec")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sqlproxy: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sqlproxy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("sqlproxy: decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("sqlproxy: %s", result.Error)
	}
	return &result, nil
}

// firstWords keeps SQL logging readable without echoing parameter markers.
func firstWords(sql string, n int) string {
	fields := strings.Fields(sql)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
