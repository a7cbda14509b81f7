package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"neuroforge/internal/domain"
	"neuroforge/internal/infra"
	"neuroforge/internal/lock"
	"neuroforge/internal/providers/taskexec"
)

// TaskRunner executes one remote function call end to end.
type TaskRunner interface {
	Run(ctx context.Context, req taskexec.RunRequest) (*taskexec.Outcome, error)
}

// LinkResolver turns a temporary output link into a permanent one. It never
// fails; on any trouble it hands back the input unchanged.
type LinkResolver interface {
	Materialize(ctx context.Context, tempURL string) string
}

// GenerationService orchestrates the full pipeline for one generation: run
// the remote task, resolve the output link, then apply the side effects
// (showcase entry, history record, credit debit).
type GenerationService struct {
	runner      TaskRunner
	resolver    LinkResolver
	users       domain.UserRepository
	showcase    domain.ShowcaseRepository
	generations domain.GenerationRepository
	locker      lock.AccountLocker
	logger      *infra.Logger
}

// GenerationServiceOptions carries the orchestrator's dependencies.
type GenerationServiceOptions struct {
	Runner      TaskRunner
	Resolver    LinkResolver
	Users       domain.UserRepository
	Showcase    domain.ShowcaseRepository
	Generations domain.GenerationRepository
	Locker      lock.AccountLocker
	Logger      *infra.Logger
}

// NewGenerationService wires the orchestrator.
func NewGenerationService(opts GenerationServiceOptions) *GenerationService {
	return &GenerationService{
		runner:      opts.Runner,
		resolver:    opts.Resolver,
		users:       opts.Users,
		showcase:    opts.Showcase,
		generations: opts.Generations,
		locker:      opts.Locker,
		logger:      opts.Logger,
	}
}

// GenerateInput is one generation request on behalf of an authenticated
// account.
type GenerateInput struct {
	Account *domain.Account
	ToolID  string
	Prompt  string
	Args    map[string]any
}

// GenerateResult is the caller-facing outcome of a finished generation.
type GenerateResult struct {
	OutputURL  string
	TaskID     string
	Raw        map[string]any
	NewBalance int
}

// Generate runs the pipeline. Validation failures return before any network
// traffic; the credit debit happens only after the remote task finished and
// the output link was resolved.
func (s *GenerationService) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	tool, ok := domain.FindTool(in.ToolID)
	if !ok {
		return nil, domain.ErrUnknownTool
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, domain.ErrEmptyPrompt
	}
	account := in.Account
	if account == nil || !account.HasBotCredentials() {
		return nil, domain.ErrMissingCredentials
	}
	// Cheap pre-flight on the cached balance. The authoritative check happens
	// at debit time.
	if account.CreditsBalance < tool.CostCredits {
		return nil, domain.ErrInsufficientCredits
	}

	release, err := s.locker.Acquire(ctx, account.ID)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, domain.ErrGenerationInFlight
		}
		return nil, fmt.Errorf("generation: acquire lock: %w", err)
	}
	defer release()

	args := make(map[string]any, len(in.Args)+1)
	for k, v := range in.Args {
		args[k] = v
	}
	args["prompt"] = prompt

	started := time.Now()
	outcome, err := s.runner.Run(ctx, taskexec.RunRequest{
		FunctionID: tool.APIID,
		Credentials: taskexec.Credentials{
			BotID:    account.BotID,
			BotToken: account.BotToken,
		},
		Args: args,
	})
	if err != nil {
		if errors.Is(err, taskexec.ErrMissingCredentials) {
			return nil, domain.ErrMissingCredentials
		}
		return nil, fmt.Errorf("generation: run task: %w", err)
	}
	switch outcome.State {
	case taskexec.StateDone:
		// fall through to side effects
	case taskexec.StateTimeout:
		return nil, domain.ErrGenerationTimeout
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrGenerationFailed, outcome.Err)
	}

	rawURL := resultURL(outcome.Result, s.logger)
	finalURL := s.resolver.Materialize(ctx, rawURL)

	s.logger.Info().
		Int64("user_id", account.ID).
		Str("tool_id", tool.ID).
		Str("task_id", outcome.TaskID).
		Dur("elapsed", time.Since(started)).
		Msg("generation: task finished")

	// Showcase and history are best-effort. A lost row must not cost the user
	// their finished output.
	if err := s.showcase.Insert(ctx, &domain.ShowcaseEntry{
		ToolID:    tool.ID,
		OutputURL: finalURL,
		Prompt:    prompt,
	}); err != nil {
		s.logger.Warn().Err(err).Str("tool_id", tool.ID).Msg("generation: showcase insert failed")
	}
	if err := s.generations.Insert(ctx, &domain.GenerationRecord{
		UserID:      account.ID,
		ToolID:      tool.ID,
		OutputURL:   finalURL,
		Prompt:      prompt,
		CostCredits: tool.CostCredits,
		APITaskID:   outcome.TaskID,
		Status:      domain.GenerationStatusDone,
	}); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", account.ID).Msg("generation: history insert failed")
	}

	balance, err := s.users.DebitCredits(ctx, account.ID, tool.CostCredits)
	if err != nil {
		return nil, fmt.Errorf("generation: debit credits: %w", err)
	}

	return &GenerateResult{
		OutputURL:  finalURL,
		TaskID:     outcome.TaskID,
		Raw:        outcome.Result,
		NewBalance: balance,
	}, nil
}
