package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/workflow/internal/logger"
	"github.com/benvon/workflow/internal/models"
	"go.uber.org/zap"
)

// Outcome tells callers whether an assist result came from the model
type Outcome string

const (
	// OutcomeOK means the value was produced by the provider
	OutcomeOK Outcome = "ok"
	// OutcomeFallback means the provider failed and the value is the fallback
	OutcomeFallback Outcome = "fallback"
)

// Fixed texts of the board analysis
const (
	AnalysisNothingPending = "Great work! There are no pending tasks. Enjoy the break!"
	AnalysisUnavailable    = "Unable to analyze the tasks right now."
	AnalysisFailed         = "Could not reach the AI assistant."
)

// TextResult is the result of a text producing assist operation
type TextResult struct {
	Text    string
	Outcome Outcome
	Err     error
}

// OK reports whether the text came from the provider
func (r TextResult) OK() bool { return r.Outcome == OutcomeOK }

// ListResult is the result of a list producing assist operation
type ListResult struct {
	Items   []string
	Outcome Outcome
	Err     error
}

// OK reports whether the items came from the provider
func (r ListResult) OK() bool { return r.Outcome == OutcomeOK }

// DefaultAssistTimeout bounds a single assist call
const DefaultAssistTimeout = 45 * time.Second

// Assistant wraps a provider with the prompts of the editors and turns every
// provider failure into an explicit fallback result. It never returns errors.
type Assistant struct {
	provider Provider
	logger   *zap.Logger
	timeout  time.Duration
}

// NewAssistant creates an assistant. A nil provider makes every operation fall back.
func NewAssistant(provider Provider, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{provider: provider, logger: logger, timeout: DefaultAssistTimeout}
}

// SetTimeout overrides the per-call timeout
func (a *Assistant) SetTimeout(d time.Duration) {
	if d > 0 {
		a.timeout = d
	}
}

// Available reports whether a provider is configured
func (a *Assistant) Available() bool {
	return a != nil && a.provider != nil
}

func (a *Assistant) complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !a.Available() {
		return "", ErrNoProvider
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.provider.Complete(ctx, req)
	if err != nil {
		a.logger.Warn("ai_assist_failed",
			zap.String("operation", req.Operation),
			zap.String("provider", a.provider.Name()),
			zap.Bool("rate_limited", IsRateLimitError(err)),
			zap.Bool("quota_exceeded", IsQuotaError(err)),
			zap.String("error", logger.SanitizeError(err)),
		)
		return "", err
	}
	return out, nil
}

const improveSystemPrompt = "You are an editorial assistant. You rewrite quick notes so they are clear and well formatted."

// ImproveNote rewrites note text for grammar and clarity. On failure the original text is returned.
func (a *Assistant) ImproveNote(ctx context.Context, text string) TextResult {
	if strings.TrimSpace(text) == "" {
		return TextResult{Text: text, Outcome: OutcomeFallback, Err: ErrEmptyInput}
	}

	prompt := "Improve the following note that was taken in a hurry.\n" +
		"Fix the grammar, make it clearer and format it better if needed (markdown is allowed).\n" +
		"Keep the original meaning. Reply ONLY with the improved text.\n\n" +
		"Original note:\n" + text

	out, err := a.complete(ctx, CompletionRequest{
		Operation: "improve_note",
		System:    improveSystemPrompt,
		Prompt:    prompt,
	})
	if err != nil {
		return TextResult{Text: text, Outcome: OutcomeFallback, Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return TextResult{Text: text, Outcome: OutcomeFallback, Err: ErrEmptyResponse}
	}
	return TextResult{Text: out, Outcome: OutcomeOK}
}

// SuggestTasks extracts actionable items from note text. On failure the list is empty.
func (a *Assistant) SuggestTasks(ctx context.Context, text string) ListResult {
	if strings.TrimSpace(text) == "" {
		return ListResult{Items: []string{}, Outcome: OutcomeFallback, Err: ErrEmptyInput}
	}

	prompt := "Analyze the following notepad text and extract the possible tasks (actions to perform).\n" +
		`Reply ONLY with a JSON object of the form {"tasks": ["Buy milk", "Email Mario"]}.` + "\n" +
		`If there are no obvious tasks, reply with {"tasks": []}.` + "\n\n" +
		"Text:\n" + text

	out, err := a.complete(ctx, CompletionRequest{
		Operation: "suggest_tasks",
		System:    "You extract action items from notes. Respond with valid JSON only.",
		Prompt:    prompt,
		JSON:      true,
	})
	if err != nil {
		return ListResult{Items: []string{}, Outcome: OutcomeFallback, Err: err}
	}
	items, err := ParseTaskList(out)
	if err != nil {
		a.logger.Warn("ai_task_list_unparseable",
			zap.String("response_preview", SanitizeResponse(out, false)),
			zap.Error(err),
		)
		return ListResult{Items: []string{}, Outcome: OutcomeFallback, Err: err}
	}
	return ListResult{Items: items, Outcome: OutcomeOK}
}

// AnalyzeTasks writes a short strategic report about the pending tasks.
// With nothing pending the provider is not called.
func (a *Assistant) AnalyzeTasks(ctx context.Context, tasks []models.Task) TextResult {
	var lines []string
	for _, t := range tasks {
		if !t.Status.Pending() {
			continue
		}
		state := "TO DO"
		if t.Status == models.TaskStatusDoing {
			state = "IN PROGRESS"
		}
		lines = append(lines, fmt.Sprintf("- [%s] (Priority: %s): %s", state, t.Priority, t.Content))
	}
	if len(lines) == 0 {
		return TextResult{Text: AnalysisNothingPending, Outcome: OutcomeOK}
	}

	prompt := "Act as an experienced and efficient project manager.\n" +
		"Analyze the following list of remaining tasks.\n\n" +
		"Give a short strategic report (3-4 sentences at most):\n" +
		"1. Identify bottlenecks or urgent items (high priority).\n" +
		"2. Suggest a logical order of execution.\n" +
		"3. Keep a motivating but professional tone.\n\n" +
		"Tasks:\n" + strings.Join(lines, "\n")

	out, err := a.complete(ctx, CompletionRequest{
		Operation: "analyze_tasks",
		Prompt:    prompt,
		MaxTokens: 400,
	})
	if err != nil {
		return TextResult{Text: AnalysisFailed, Outcome: OutcomeFallback, Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return TextResult{Text: AnalysisUnavailable, Outcome: OutcomeFallback, Err: ErrEmptyResponse}
	}
	return TextResult{Text: out, Outcome: OutcomeOK}
}
