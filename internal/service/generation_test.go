package service

import (
	"context"
	"errors"
	"testing"

	"neuroforge/internal/domain"
	"neuroforge/internal/lock"
	"neuroforge/internal/providers/taskexec"
)

type fakeRunner struct {
	outcome *taskexec.Outcome
	err     error
	calls   int
	lastReq taskexec.RunRequest
}

func (f *fakeRunner) Run(_ context.Context, req taskexec.RunRequest) (*taskexec.Outcome, error) {
	f.calls++
	f.lastReq = req
	return f.outcome, f.err
}

type fakeResolver struct {
	resolved map[string]string
	calls    int
}

func (f *fakeResolver) Materialize(_ context.Context, tempURL string) string {
	f.calls++
	if f.resolved != nil {
		if out, ok := f.resolved[tempURL]; ok {
			return out
		}
	}
	return tempURL
}

type fakeUsers struct {
	domain.UserRepository
	balance    int
	debitErr   error
	debits     []int
	debitUsers []int64
}

func (f *fakeUsers) DebitCredits(_ context.Context, userID int64, amount int) (int, error) {
	if f.debitErr != nil {
		return 0, f.debitErr
	}
	f.debits = append(f.debits, amount)
	f.debitUsers = append(f.debitUsers, userID)
	f.balance -= amount
	return f.balance, nil
}

type fakeShowcase struct {
	entries []domain.ShowcaseEntry
	err     error
}

func (f *fakeShowcase) Insert(_ context.Context, entry *domain.ShowcaseEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeShowcase) Latest(_ context.Context, _ int) ([]domain.ShowcaseEntry, error) {
	return f.entries, nil
}

type fakeGenerations struct {
	records []domain.GenerationRecord
	err     error
}

func (f *fakeGenerations) Insert(_ context.Context, record *domain.GenerationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeGenerations) ListByUser(_ context.Context, _ int64) ([]domain.GenerationRecord, error) {
	return f.records, nil
}

type testPipeline struct {
	runner      *fakeRunner
	resolver    *fakeResolver
	users       *fakeUsers
	showcase    *fakeShowcase
	generations *fakeGenerations
	locker      lock.AccountLocker
	svc         *GenerationService
}

func newTestPipeline(outcome *taskexec.Outcome) *testPipeline {
	p := &testPipeline{
		runner:      &fakeRunner{outcome: outcome},
		resolver:    &fakeResolver{},
		users:       &fakeUsers{balance: 150},
		showcase:    &fakeShowcase{},
		generations: &fakeGenerations{},
		locker:      lock.NewMemoryLocker(),
	}
	p.svc = NewGenerationService(GenerationServiceOptions{
		Runner:      p.runner,
		Resolver:    p.resolver,
		Users:       p.users,
		Showcase:    p.showcase,
		Generations: p.generations,
		Locker:      p.locker,
		Logger:      discardLogger(),
	})
	return p
}

func testAccount() *domain.Account {
	return &domain.Account{
		ID:             7,
		Email:          "a@b.c",
		CreditsBalance: 150,
		BotID:          12345,
		BotToken:       "tok",
	}
}

func TestGenerateHappyPath(t *testing.T) {
	p := newTestPipeline(&taskexec.Outcome{
		TaskID: "f385_task_ab12cd34e",
		State:  taskexec.StateDone,
		Result: map[string]any{"result": "https://tmp.example.com/out.png"},
	})
	p.resolver.resolved = map[string]string{
		"https://tmp.example.com/out.png": "https://file.pro-talk.ru/tgf/out.png",
	}

	res, err := p.svc.Generate(context.Background(), GenerateInput{
		Account: testAccount(),
		ToolID:  "nano-banana",
		Prompt:  "a fox",
		Args:    map[string]any{"aspect_ratio": "1:1"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.OutputURL != "https://file.pro-talk.ru/tgf/out.png" {
		t.Errorf("output url = %q", res.OutputURL)
	}
	if res.TaskID != "f385_task_ab12cd34e" {
		t.Errorf("task id = %q", res.TaskID)
	}
	if res.NewBalance != 148 {
		t.Errorf("balance = %d, want 148", res.NewBalance)
	}

	if p.runner.lastReq.FunctionID != 385 {
		t.Errorf("function id = %d", p.runner.lastReq.FunctionID)
	}
	if p.runner.lastReq.Args["prompt"] != "a fox" || p.runner.lastReq.Args["aspect_ratio"] != "1:1" {
		t.Errorf("args = %v", p.runner.lastReq.Args)
	}
	if p.runner.lastReq.Credentials.BotID != 12345 || p.runner.lastReq.Credentials.BotToken != "tok" {
		t.Errorf("credentials = %+v", p.runner.lastReq.Credentials)
	}

	if len(p.showcase.entries) != 1 {
		t.Fatalf("showcase entries = %d", len(p.showcase.entries))
	}
	if p.showcase.entries[0].OutputURL != "https://file.pro-talk.ru/tgf/out.png" {
		t.Errorf("showcase url = %q", p.showcase.entries[0].OutputURL)
	}

	if len(p.generations.records) != 1 {
		t.Fatalf("generation records = %d", len(p.generations.records))
	}
	rec := p.generations.records[0]
	if rec.UserID != 7 || rec.CostCredits != 2 || rec.Status != domain.GenerationStatusDone {
		t.Errorf("record = %+v", rec)
	}
	if rec.APITaskID != "f385_task_ab12cd34e" {
		t.Errorf("record task id = %q", rec.APITaskID)
	}

	if len(p.users.debits) != 1 || p.users.debits[0] != 2 {
		t.Errorf("debits = %v, want one debit of 2", p.users.debits)
	}
}

func TestGenerateResolverFallbackStillDebits(t *testing.T) {
	p := newTestPipeline(&taskexec.Outcome{
		TaskID: "t",
		State:  taskexec.StateDone,
		Result: map[string]any{"result": "https://tmp.example.com/out.png"},
	})
	// Resolver returns input unchanged, mimicking a failed conversion.

	res, err := p.svc.Generate(context.Background(), GenerateInput{
		Account: testAccount(), ToolID: "nano-banana", Prompt: "a fox",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.OutputURL != "https://tmp.example.com/out.png" {
		t.Errorf("output url = %q, want temporary link", res.OutputURL)
	}
	if len(p.users.debits) != 1 {
		t.Errorf("debits = %v, want exactly one", p.users.debits)
	}
}

func TestGenerateTimeoutHasNoSideEffects(t *testing.T) {
	p := newTestPipeline(&taskexec.Outcome{
		TaskID: "t", State: taskexec.StateTimeout, Err: taskexec.ReasonTimeout,
	})

	_, err := p.svc.Generate(context.Background(), GenerateInput{
		Account: testAccount(), ToolID: "kling-video", Prompt: "waves",
	})
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("err = %v, want ErrGenerationTimeout", err)
	}
	if len(p.users.debits) != 0 || len(p.showcase.entries) != 0 || len(p.generations.records) != 0 {
		t.Fatalf("side effects after timeout: debits=%v showcase=%d records=%d",
			p.users.debits, len(p.showcase.entries), len(p.generations.records))
	}
}

func TestGenerateRemoteFailureHasNoSideEffects(t *testing.T) {
	p := newTestPipeline(&taskexec.Outcome{
		TaskID: "t", State: taskexec.StateFailed, Err: "model overloaded",
	})

	_, err := p.svc.Generate(context.Background(), GenerateInput{
		Account: testAccount(), ToolID: "nano-banana", Prompt: "a fox",
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if len(p.users.debits) != 0 {
		t.Fatalf("debits = %v after remote failure", p.users.debits)
	}
}

func TestGenerateInsufficientCachedBalanceRejectsBeforeNetwork(t *testing.T) {
	p := newTestPipeline(nil)

	account := testAccount()
	account.CreditsBalance = 1 // kling-video costs 10

	_, err := p.svc.Generate(context.Background(), GenerateInput{
		Account: account, ToolID: "kling-video", Prompt: "waves",
	})
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if p.runner.calls != 0 {
		t.Fatalf("runner called %d times for rejected request", p.runner.calls)
	}
}

func TestGenerateValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerateInput)
		wantErr error
	}{
		{
			name:    "unknown tool",
			mutate:  func(in *GenerateInput) { in.ToolID = "warp-drive" },
			wantErr: domain.ErrUnknownTool,
		},
		{
			name:    "empty prompt",
			mutate:  func(in *GenerateInput) { in.Prompt = "   " },
			wantErr: domain.ErrEmptyPrompt,
		},
		{
			name:    "missing credentials",
			mutate:  func(in *GenerateInput) { in.Account.BotToken = "" },
			wantErr: domain.ErrMissingCredentials,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPipeline(nil)
			in := GenerateInput{Account: testAccount(), ToolID: "nano-banana", Prompt: "a fox"}
			tc.mutate(&in)

			if _, err := p.svc.Generate(context.Background(), in); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if p.runner.calls != 0 {
				t.Fatalf("runner called %d times", p.runner.calls)
			}
		})
	}
}

func TestGenerateRejectsOverlappingRequests(t *testing.T) {
	p := newTestPipeline(nil)

	release, err := p.locker.Acquire(context.Background(), 7)
	if err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	defer release()

	_, err = p.svc.Generate(context.Background(), GenerateInput{
		Account: testAccount(), ToolID: "nano-banana", Prompt: "a fox",
	})
	if !errors.Is(err, domain.ErrGenerationInFlight) {
		t.Fatalf("err = %v, want ErrGenerationInFlight", err)
	}
	if p.runner.calls != 0 {
		t.Fatalf("runner called while lock held")
	}
}

func TestGenerateReleasesLockAfterFailure(t *testing.T) {
	p := newTestPipeline(&taskexec.Outcome{
		TaskID: "t", State: taskexec.StateTimeout, Err: taskexec.ReasonTimeout,
	})

	in := GenerateInput{Account: testAccount(), ToolID: "nano-banana", Prompt: "a fox"}
	if _, err := p.svc.Generate(context.Background(), in); !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("first err = %v", err)
	}

	// Lock must be free again.
	p.runner.outcome = &taskexec.Outcome{
		TaskID: "t2", State: taskexec.StateDone,
		Result: map[string]any{"result": "https://cdn/x.png"},
	}
	if _, err := p.svc.Generate(context.Background(), in); err != nil {
		t.Fatalf("second err = %v", err)
	}
}

func TestGenerateShowcaseFailureDoesNotBlock(t *testing.T) {
	p := newTestPipeline(&taskexec.Outcome{
		TaskID: "t", State: taskexec.StateDone,
		Result: map[string]any{"result": "https://cdn/x.png"},
	})
	p.showcase.err = errors.New("gallery table locked")
	p.generations.err = errors.New("history table locked")

	res, err := p.svc.Generate(context.Background(), GenerateInput{
		Account: testAccount(), ToolID: "nano-banana", Prompt: "a fox",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.NewBalance != 148 {
		t.Errorf("balance = %d, want debit to happen regardless", res.NewBalance)
	}
}

func TestGenerateDebitErrorPropagates(t *testing.T) {
	p := newTestPipeline(&taskexec.Outcome{
		TaskID: "t", State: taskexec.StateDone,
		Result: map[string]any{"result": "https://cdn/x.png"},
	})
	p.users.debitErr = domain.ErrInsufficientCredits

	_, err := p.svc.Generate(context.Background(), GenerateInput{
		Account: testAccount(), ToolID: "nano-banana", Prompt: "a fox",
	})
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
}
