package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chitedze/agroadvisor/internal/ai"
	"github.com/chitedze/agroadvisor/internal/model"
	errs "github.com/chitedze/agroadvisor/internal/pkg/errors"
)

// Fixed user-facing messages for the degraded paths.
const (
	MessageBusy = "⚠️ Service is currently busy. Please try again in a few moments."

	MessageUnavailable = "⚠️ AI service temporarily unavailable. Please try again later."

	MessageApology = "🚫 I apologize, but I'm having trouble processing your request at the moment. " +
		"Please try rephrasing your question or contact local agricultural extension services " +
		"for immediate assistance."
)

const (
	groundedTemperature = 0.2
	fallbackTemperature = 0.7
	maxAnswerTokens     = 1000
	queryLogTimeout     = 5 * time.Second
)

// ContextRetriever supplies document chunks relevant to a query. A retriever
// with no loaded knowledge base returns nothing and never errors.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) []string
}

// Searcher supplies formatted web results, the no-results sentinel, or an
// error the orchestrator treats as "no web context".
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// QueryLogger records answered queries for the popularity stats; failures
// must never affect the answer path.
type QueryLogger interface {
	Log(ctx context.Context, query string, source string) error
}

// Result is one answered query.
type Result struct {
	Text   string
	Source string
}

// Advisor wires retrieval, web search and generation into the full
// question-answering flow.
type Advisor struct {
	retriever ContextRetriever
	searcher  Searcher
	generator ai.IGenerator
	convs     *ConversationStore
	logs      QueryLogger
}

func New(retriever ContextRetriever, searcher Searcher, generator ai.IGenerator, convs *ConversationStore, logs QueryLogger) *Advisor {
	if convs == nil {
		convs = NewConversationStore(DefaultHistoryCapacity)
	}
	return &Advisor{
		retriever: retriever,
		searcher:  searcher,
		generator: generator,
		convs:     convs,
		logs:      logs,
	}
}

// NormalizeQuery collapses whitespace and anchors location-free queries to
// the service area. The normalized form feeds retrieval and search only; the
// farmer's original wording goes into the prompt.
func NormalizeQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	lower := strings.ToLower(query)
	if !strings.Contains(lower, "malawi") && !strings.Contains(lower, "lilongwe") {
		query = query + " (for Lilongwe, Malawi context)"
	}
	return query
}

// Answer runs the full flow for one farmer question. It always produces a
// user-facing message; degraded paths return the fixed messages above.
func (a *Advisor) Answer(ctx context.Context, conversationID string, query string) Result {
	logger := logutil.GetLogger(ctx).With(zap.String("conversation_id", conversationID))
	logger.Info("processing query", zap.String("query", query))

	a.convs.Append(conversationID, model.RoleUser, query)
	normalized := NormalizeQuery(query)

	chunks := a.retrieve(ctx, normalized)
	searchText := a.searchOnline(ctx, normalized)

	contextBlock, source := ComposeContext(chunks, searchText)
	logger.Info("composed context",
		zap.String("source", source),
		zap.Int("chunks", len(chunks)),
	)

	temperature := float32(groundedTemperature)
	if source == SourceAIFallback {
		temperature = fallbackTemperature
	}

	messages := make([]ai.Message, 0, a.convs.capacity+1)
	messages = append(messages, ai.Message{
		Role:    model.RoleSystem,
		Content: BuildPrompt(contextBlock, query),
	})
	for _, turn := range a.convs.History(conversationID) {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}

	raw, err := a.generator.Chat(ctx, messages, ai.GenerateOptions{
		Temperature:      temperature,
		TopP:             0.9,
		MaxTokens:        maxAnswerTokens,
		FrequencyPenalty: 0.3,
		PresencePenalty:  0.3,
	})
	if err != nil {
		return a.failedResult(ctx, conversationID, query, source, err)
	}

	answer := ParseAnswer(raw)
	a.convs.Append(conversationID, model.RoleAssistant, answer)
	a.logQuery(ctx, query, source)
	return Result{Text: answer, Source: source}
}

func (a *Advisor) retrieve(ctx context.Context, query string) []string {
	if a.retriever == nil {
		return nil
	}
	return a.retriever.Retrieve(ctx, query)
}

func (a *Advisor) searchOnline(ctx context.Context, query string) string {
	if a.searcher == nil {
		return ""
	}
	text, err := a.searcher.Search(ctx, query)
	if err != nil {
		logutil.GetLogger(ctx).Warn("web search unavailable", zap.Error(err))
		return ""
	}
	return text
}

// failedResult maps a generation error to the fixed user-facing messages.
// Busy and unavailable replies still reach the query audit log under the
// composed source; only outright failures go unlogged.
func (a *Advisor) failedResult(ctx context.Context, conversationID string, query string, source string, err error) Result {
	logger := logutil.GetLogger(ctx)
	switch {
	case errs.IsRateLimited(err):
		logger.Error("generation rate limited", zap.Error(err))
		a.convs.Append(conversationID, model.RoleAssistant, MessageBusy)
		a.logQuery(ctx, query, source)
		return Result{Text: MessageBusy}
	case errors.Is(err, errs.ErrUnavailable):
		logger.Error("generation service unavailable", zap.Error(err))
		a.convs.Append(conversationID, model.RoleAssistant, MessageUnavailable)
		a.logQuery(ctx, query, source)
		return Result{Text: MessageUnavailable}
	default:
		logger.Error("generation failed", zap.Error(err))
		a.convs.Append(conversationID, model.RoleAssistant, "AI generation failed.")
		return Result{Text: MessageApology}
	}
}

func (a *Advisor) logQuery(ctx context.Context, query string, source string) {
	if a.logs == nil {
		return
	}
	logger := logutil.GetLogger(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queryLogTimeout)
		defer cancel()
		if err := a.logs.Log(ctx, query, source); err != nil {
			logger.Warn("log query failed", zap.Error(err))
		}
	}()
}
