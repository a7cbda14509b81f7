package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"neuroforge/internal/infra"
)

// Options configures the speech-to-text client.
type Options struct {
	UploadURL     string
	TranscribeURL string
	HTTPClient    *http.Client
	Logger        *infra.Logger
}

// Client wraps the voice-input flow: upload a recorded clip to temporary
// storage, then ask the STT endpoint to transcribe it. Plain request/response,
// no state machine.
type Client struct {
	uploadURL     string
	transcribeURL string
	httpClient    *http.Client
	logger        *infra.Logger
}

// NewClient constructs a speech client.
func NewClient(opts Options) (*Client, error) {
	uploadURL := strings.TrimSpace(opts.UploadURL)
	transcribeURL := strings.TrimSpace(opts.TranscribeURL)
	if uploadURL == "" || transcribeURL == "" {
		return nil, errors.New("speech: upload and transcribe urls are required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		uploadURL:     uploadURL,
		transcribeURL: transcribeURL,
		httpClient:    httpClient,
		logger:        logger,
	}, nil
}

// Upload stores an audio clip in temporary storage and returns its URL.
func (c *Client) Upload(ctx context.Context, filename string, data io.Reader) (string, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("speech: build upload form: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("speech: read audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("speech: finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, strings.NewReader(body.String()))
	if err != nil {
		return "", fmt.Errorf("speech: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: upload request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("speech: upload status %d", resp.StatusCode)
	}

	var decoded struct {
		Status string `json:"status"`
		Data   struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("speech: decode upload response: %w", err)
	}
	if decoded.Status != "success" || decoded.Data.URL == "" {
		return "", errors.New("speech: upload response missing file url")
	}
	return decoded.Data.URL, nil
}

// Transcribe asks the STT endpoint for the text of an uploaded clip.
func (c *Client) Transcribe(ctx context.Context, fileURL string) (string, error) {
	if strings.TrimSpace(fileURL) == "" {
		return "", errors.New("speech: file url is required")
	}
	endpoint := c.transcribeURL + "?url=" + url.QueryEscape(fileURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("speech: build transcribe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: transcribe request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("speech: transcribe status %d", resp.StatusCode)
	}

	var decoded struct {
		Text *string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("speech: decode transcribe response: %w", err)
	}
	if decoded.Text == nil {
		return "", errors.New("speech: transcribe response missing text")
	}
	return *decoded.Text, nil
}
