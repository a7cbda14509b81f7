package taskexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"neuroforge/internal/infra"
)

// ErrMissingCredentials indicates the caller has no bot credentials; nothing
// is sent over the network in that case.
var ErrMissingCredentials = errors.New("taskexec: bot credentials required")

// ReasonTaskCreateFailed is the failure reason for jobs whose submission
// request never succeeded. ReasonTimeout marks jobs that exhausted the poll
// budget without a terminal status.
const (
	ReasonTaskCreateFailed = "task_create_failed"
	ReasonTimeout          = "timeout"
)

// State is the terminal state of a job. Exactly one is produced per Run.
type State string

const (
	StateDone    State = "done"
	StateFailed  State = "failed"
	StateTimeout State = "timeout"
)

// Credentials identify the calling bot account to the execution service.
type Credentials struct {
	BotID    int64
	BotToken string
}

func (c Credentials) valid() bool {
	return c.BotID != 0 && strings.TrimSpace(c.BotToken) != ""
}

// Outcome is the single terminal result of one submitted job.
type Outcome struct {
	TaskID string
	State  State
	Result map[string]any
	Err    string
}

// Succeeded reports whether the job reached a done status.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.State == StateDone
}

// Options configures the execution-service client.
type Options struct {
	// ProxyURL receives the submission request and forwards it to the
	// execution service.
	ProxyURL        string
	FunctionsBaseID string
	DefaultHost     string
	DefaultTimeout  time.Duration
	PollInterval    time.Duration
	HTTPClient      *http.Client
	Logger          *infra.Logger
}

// Client submits function jobs to the remote execution service and polls for
// their completion.
type Client struct {
	proxyURL        string
	functionsBaseID string
	defaultHost     string
	defaultTimeout  time.Duration
	pollInterval    time.Duration
	httpClient      *http.Client
	logger          *infra.Logger
}

// RunRequest describes one job. Args must carry the prompt; tool-specific
// keys ride along unchanged.
type RunRequest struct {
	FunctionID  int
	Credentials Credentials
	Args        map[string]any
	Host        string
	Timeout     time.Duration
}

type submitRequest struct {
	BotID      int64            `json:"bot_id"`
	BotToken   string           `json:"bot_token"`
	TaskType   string           `json:"task_type"`
	Repeat     string           `json:"repeat"`
	TriggerID  string           `json:"trigger_id"`
	Parameters submitParameters `json:"parameters"`
}

type submitParameters struct {
	APIURL  string          `json:"api_url"`
	Method  string          `json:"method"`
	Payload functionPayload `json:"payload"`
}

type functionPayload struct {
	FunctionID      int            `json:"function_id"`
	FunctionsBaseID string         `json:"functions_base_id"`
	BotID           int64          `json:"bot_id"`
	BotToken        string         `json:"bot_token"`
	Arguments       map[string]any `json:"arguments"`
}

type pollRequest struct {
	TaskID         string `json:"task_id"`
	BotID          int64  `json:"bot_id"`
	BotToken       string `json:"bot_token"`
	DialogsAPIHost string `json:"dialogs_api_host"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	proxyURL := strings.TrimSpace(opts.ProxyURL)
	if proxyURL == "" {
		return nil, errors.New("taskexec: proxy url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	defaultHost := strings.TrimSpace(opts.DefaultHost)
	if defaultHost == "" {
		defaultHost = "api.pro-talk.ru"
	}
	defaultTimeout := opts.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = 300 * time.Second
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 8 * time.Second
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
		proxyURL:        proxyURL,
		functionsBaseID: strings.TrimSpace(opts.FunctionsBaseID),
		defaultHost:     defaultHost,
		defaultTimeout:  defaultTimeout,
		pollInterval:    pollInterval,
		httpClient:      httpClient,
		logger:          logger,
	}, nil
}

// Run submits the job and polls until a terminal status, a timeout, or ctx
// cancellation. Submission is one-shot; only the polling step retries, and
// only until the wall-clock budget runs out. The returned error is non-nil
// solely for precondition violations and cancellation; every remote failure
// mode is expressed as an Outcome.
func (c *Client) Run(ctx context.Context, req RunRequest) (*Outcome, error) {
	if req.FunctionID <= 0 {
		return nil, fmt.Errorf("taskexec: function id must be positive, got %d", req.FunctionID)
	}
	if !req.Credentials.valid() {
		return nil, ErrMissingCredentials
	}
	host := strings.TrimSpace(req.Host)
	if host == "" {
		host = c.defaultHost
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}

	taskID := newTaskID(req.FunctionID)
	start := time.Now()

	if err := c.submit(ctx, req, host, taskID); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error().Err(err).Str("task_id", taskID).Int("function_id", req.FunctionID).
			Msg("taskexec: task submission failed")
		return &Outcome{TaskID: taskID, State: StateFailed, Err: ReasonTaskCreateFailed}, nil
	}
	c.logger.Info().Str("task_id", taskID).Int("function_id", req.FunctionID).
		Msg("taskexec: task submitted")

	for {
		if time.Since(start) >= timeout {
			c.logger.Warn().Str("task_id", taskID).Dur("elapsed", time.Since(start)).
				Msg("taskexec: poll budget exhausted")
			return &Outcome{TaskID: taskID, State: StateTimeout, Err: ReasonTimeout}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		payload, err := c.poll(ctx, req.Credentials, host, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient: malformed responses and poll-level transport errors
			// never terminate the job.
			c.logger.Warn().Err(err).Str("task_id", taskID).Msg("taskexec: poll failed, retrying")
			continue
		}

		status, _ := payload["status"].(string)
		switch status {
		case "done":
			return &Outcome{TaskID: taskID, State: StateDone, Result: payload}, nil
		case "error":
			reason, _ := payload["error"].(string)
			if reason == "" {
				reason = "remote error"
			}
			return &Outcome{TaskID: taskID, State: StateFailed, Err: reason}, nil
		}
	}
}

func (c *Client) submit(ctx context.Context, req RunRequest, host, taskID string) error {
	args := make(map[string]any, len(req.Args)+1)
	for k, v := range req.Args {
		args[k] = v
	}
	args["task_id"] = taskID

	payload := submitRequest{
		BotID:     req.Credentials.BotID,
		BotToken:  req.Credentials.BotToken,
		TaskType:  "api_call",
		Repeat:    "Once",
		TriggerID: strconv.FormatInt(time.Now().UnixMilli(), 10),
		Parameters: submitParameters{
			APIURL: fmt.Sprintf("https://%s/api/v1.0/run_function", host),
			Method: http.MethodPost,
			Payload: functionPayload{
				FunctionID:      req.FunctionID,
				FunctionsBaseID: c.functionsBaseID,
				BotID:           req.Credentials.BotID,
				BotToken:        req.Credentials.BotToken,
				Arguments:       args,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("taskexec: encode submission: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("taskexec: build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("taskexec: submission request: %w", err)
	}
	defer resp.Body.Close()
	// Failure is inferred purely from the HTTP status; no body shape is
	// required for the submission step.
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("taskexec: submission status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) poll(ctx context.Context, creds Credentials, host, taskID string) (map[string]any, error) {
	body, err := json.Marshal(pollRequest{
		TaskID:         taskID,
		BotID:          creds.BotID,
		BotToken:       creds.BotToken,
		DialogsAPIHost: host,
	})
	if err != nil {
		return nil, fmt.Errorf("taskexec: encode poll: %w", err)
	}
	endpoint := fmt.Sprintf("https://%s/api/v1.0/get_function_result", host)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("taskexec: build poll request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("taskexec: poll request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("taskexec: read poll response: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("taskexec: decode poll response: %w", err)
	}
	return payload, nil
}

// newTaskID generates a client-side identifier unique enough to avoid
// collisions within a session, keyed by function id for traceability.
func newTaskID(functionID int) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("f%d_task_%s", functionID, suffix)
}
