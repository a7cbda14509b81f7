package filelink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"neuroforge/internal/infra"
)

// Options configures the file-permanence resolver.
type Options struct {
	// ConvertURL is the endpoint that exchanges a temporary URL for a durable
	// one. Its host+path also define the permanent-link pattern used for the
	// idempotence check.
	ConvertURL  string
	UploadToken string
	HTTPClient  *http.Client
	Logger      *infra.Logger
}

// Resolver converts short-lived result URLs into durable ones. It trades
// durability for availability: any conversion failure degrades to the
// original URL instead of interrupting the caller.
type Resolver struct {
	convertURL      string
	permanentPrefix string
	uploadToken     string
	httpClient      *http.Client
	logger          *infra.Logger
}

// NewResolver constructs a resolver. ConvertURL is required.
func NewResolver(opts Options) (*Resolver, error) {
	convertURL := strings.TrimSpace(opts.ConvertURL)
	if convertURL == "" {
		return nil, errors.New("filelink: convert url is required")
	}
	parsed, err := url.Parse(convertURL)
	if err != nil || parsed.Host == "" {
		return nil, errors.New("filelink: convert url is invalid")
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
	return &Resolver{
		convertURL:      convertURL,
		permanentPrefix: parsed.Host + strings.TrimRight(parsed.Path, "/") + "/",
		uploadToken:     strings.TrimSpace(opts.UploadToken),
		httpClient:      httpClient,
		logger:          logger,
	}, nil
}

// Materialize exchanges tempURL for a permanent link. Empty input and links
// already under the permanent host are returned unchanged without a network
// call, which makes the operation idempotent. It never fails: on any error
// the original URL comes back and the caller's flow continues.
func (r *Resolver) Materialize(ctx context.Context, tempURL string) string {
	if tempURL == "" {
		return tempURL
	}
	if strings.Contains(tempURL, r.permanentPrefix) {
		return tempURL
	}

	form := url.Values{"url": {tempURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.convertURL, strings.NewReader(form.Encode()))
	if err != nil {
		r.logger.Warn().Err(err).Str("url", tempURL).Msg("filelink: build convert request failed")
		return tempURL
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if r.uploadToken != "" {
		req.Header.Set("X-Upload-Token", r.uploadToken)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", tempURL).Msg("filelink: convert request failed")
		return tempURL
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn().Int("status", resp.StatusCode).Str("url", tempURL).
			Msg("filelink: convert rejected")
		return tempURL
	}

	var decoded struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		r.logger.Warn().Err(err).Str("url", tempURL).Msg("filelink: decode convert response failed")
		return tempURL
	}
	if decoded.URL == "" {
		r.logger.Warn().Str("url", tempURL).Msg("filelink: convert response missing url")
		return tempURL
	}
	return decoded.URL
}
