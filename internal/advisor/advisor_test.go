package advisor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chitedze/agroadvisor/internal/ai"
	"github.com/chitedze/agroadvisor/internal/model"
	errs "github.com/chitedze/agroadvisor/internal/pkg/errors"
	"github.com/chitedze/agroadvisor/internal/search"
)

type stubRetriever struct {
	chunks []string
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string) []string {
	return s.chunks
}

type stubSearcher struct {
	text string
	err  error
}

func (s *stubSearcher) Search(ctx context.Context, query string) (string, error) {
	return s.text, s.err
}

type stubGenerator struct {
	reply    string
	err      error
	messages []ai.Message
	opts     ai.GenerateOptions
}

func (s *stubGenerator) Chat(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error) {
	s.messages = messages
	s.opts = opts
	return s.reply, s.err
}

type recordingLogger struct {
	mu      sync.Mutex
	queries []string
	sources []string
}

func (r *recordingLogger) Log(ctx context.Context, query string, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	r.sources = append(r.sources, source)
	return nil
}

func (r *recordingLogger) wait(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		n := len(r.queries)
		r.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("query was never logged")
}

func TestNormalizeQuery(t *testing.T) {
	require.Equal(t,
		"when to plant maize (for Lilongwe, Malawi context)",
		NormalizeQuery("  when   to plant\tmaize "),
	)
	require.Equal(t, "rainfall in Malawi", NormalizeQuery("rainfall in Malawi"))
	require.Equal(t, "soils around LILONGWE", NormalizeQuery("soils around LILONGWE"))
}

func TestComposeContextSourceLabels(t *testing.T) {
	chunks := []string{"chunk one", "chunk two"}
	web := "Found 2 results"

	ctxBlock, source := ComposeContext(chunks, web)
	require.Equal(t, SourcePDFAndOnline, source)
	require.Contains(t, ctxBlock, "PDF Document Context:\nchunk one\n---\nchunk two")
	require.Contains(t, ctxBlock, "Online Search Context:\nFound 2 results")

	_, source = ComposeContext(chunks, "")
	require.Equal(t, SourcePDFKnowledge, source)

	_, source = ComposeContext(nil, web)
	require.Equal(t, SourceOnlineSearch, source)

	ctxBlock, source = ComposeContext(nil, "")
	require.Equal(t, SourceAIFallback, source)
	require.Equal(t, NoContextPlaceholder, ctxBlock)

	// The no-results sentinel counts as no web context.
	_, source = ComposeContext(nil, search.NoInformation)
	require.Equal(t, SourceAIFallback, source)
}

func TestParseAnswer(t *testing.T) {
	raw := "Some thinking.\n<answer>Here's my advice for farming in Lilongwe, Malawi:\n• Plant in November</answer> trailing"
	require.Equal(t, "• Plant in November", ParseAnswer(raw))

	require.Equal(t, "plain text reply", ParseAnswer("plain text reply"))
	require.Equal(t, "<answer>never closed", ParseAnswer("<answer>never closed"))
	require.Equal(t, "just advice", ParseAnswer("<answer>just advice</answer>"))
}

func TestConversationStoreEvictsOldest(t *testing.T) {
	store := NewConversationStore(DefaultHistoryCapacity)
	for i := 0; i < 11; i++ {
		store.Append("farmer-1", model.RoleUser, fmt.Sprintf("turn %d", i))
	}
	got := store.History("farmer-1")
	require.Len(t, got, DefaultHistoryCapacity)
	require.Equal(t, "turn 1", got[0].Content)
	require.Equal(t, "turn 10", got[9].Content)

	require.Empty(t, store.History("farmer-2"))
}

func TestConversationStoreConcurrentAccess(t *testing.T) {
	store := NewConversationStore(DefaultHistoryCapacity)
	ids := []string{"farmer-1", "farmer-2", "farmer-3"}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			id := ids[g%len(ids)]
			for i := 0; i < 100; i++ {
				store.Append(id, model.RoleUser, fmt.Sprintf("g%d turn %d", g, i))
				store.History(id)
				store.History(ids[(g+1)%len(ids)])
			}
		}(g)
	}
	wg.Wait()

	for _, id := range ids {
		history := store.History(id)
		require.Len(t, history, DefaultHistoryCapacity)
		for _, turn := range history {
			require.Equal(t, model.RoleUser, turn.Role)
			require.NotEmpty(t, turn.Content)
		}
	}
}

func TestAnswerGroundedInDocuments(t *testing.T) {
	gen := &stubGenerator{reply: "<answer>Here's my advice for farming in Lilongwe, Malawi: 🌽 Plant with first rains.</answer>"}
	logs := &recordingLogger{}
	adv := New(
		&stubRetriever{chunks: []string{"maize is planted in November"}},
		&stubSearcher{text: search.NoInformation},
		gen,
		NewConversationStore(DefaultHistoryCapacity),
		logs,
	)

	got := adv.Answer(context.Background(), "farmer-1", "when to plant maize")
	require.Equal(t, "🌽 Plant with first rains.", got.Text)
	require.Equal(t, SourcePDFKnowledge, got.Source)

	// System turn carries the filled template; history follows it.
	require.Equal(t, model.RoleSystem, gen.messages[0].Role)
	require.Contains(t, gen.messages[0].Content, "maize is planted in November")
	require.Contains(t, gen.messages[0].Content, "<question>\nwhen to plant maize\n</question>")
	require.Equal(t, model.RoleUser, gen.messages[1].Role)
	require.InDelta(t, 0.2, gen.opts.Temperature, 1e-6)
	require.Equal(t, 1000, gen.opts.MaxTokens)

	history := adv.convs.History("farmer-1")
	require.Len(t, history, 2)
	require.Equal(t, model.RoleAssistant, history[1].Role)
	require.Equal(t, "🌽 Plant with first rains.", history[1].Content)

	logs.wait(t)
	require.Equal(t, []string{"when to plant maize"}, logs.queries)
	require.Equal(t, []string{SourcePDFKnowledge}, logs.sources)
}

func TestAnswerFallbackUsesHigherTemperature(t *testing.T) {
	gen := &stubGenerator{reply: "<answer>general advice</answer>"}
	adv := New(&stubRetriever{}, &stubSearcher{}, gen, nil, nil)

	got := adv.Answer(context.Background(), "farmer-1", "anything")
	require.Equal(t, SourceAIFallback, got.Source)
	require.Contains(t, gen.messages[0].Content, NoContextPlaceholder)
	require.InDelta(t, 0.7, gen.opts.Temperature, 1e-6)
}

func TestAnswerGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("boom")}
	logs := &recordingLogger{}
	adv := New(&stubRetriever{}, &stubSearcher{}, gen, NewConversationStore(DefaultHistoryCapacity), logs)

	got := adv.Answer(context.Background(), "farmer-1", "anything")
	require.Equal(t, MessageApology, got.Text)
	require.Empty(t, got.Source)

	history := adv.convs.History("farmer-1")
	require.Equal(t, "AI generation failed.", history[len(history)-1].Content)

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, logs.queries)
}

func TestAnswerRateLimited(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("api: %w", errs.ErrRateLimited)}
	logs := &recordingLogger{}
	adv := New(&stubRetriever{}, &stubSearcher{}, gen, nil, logs)

	got := adv.Answer(context.Background(), "farmer-1", "anything")
	require.Equal(t, MessageBusy, got.Text)

	// The busy reply still counts toward the query audit log.
	logs.wait(t)
	require.Equal(t, []string{"anything"}, logs.queries)
	require.Equal(t, []string{SourceAIFallback}, logs.sources)
}

func TestAnswerServiceUnavailable(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("api: %w", errs.ErrUnavailable)}
	logs := &recordingLogger{}
	adv := New(&stubRetriever{chunks: []string{"rotation notes"}}, &stubSearcher{}, gen, nil, logs)

	got := adv.Answer(context.Background(), "farmer-1", "anything")
	require.Equal(t, MessageUnavailable, got.Text)
	require.True(t, strings.HasPrefix(got.Text, "⚠️"))

	logs.wait(t)
	require.Equal(t, []string{SourcePDFKnowledge}, logs.sources)
}
