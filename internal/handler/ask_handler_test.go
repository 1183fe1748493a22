package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/chitedze/agroadvisor/internal/advisor"
	"github.com/chitedze/agroadvisor/internal/ai"
)

type fixedRetriever struct{}

func (fixedRetriever) Retrieve(ctx context.Context, query string) []string {
	return []string{"maize is planted in November"}
}

type noSearcher struct{}

func (noSearcher) Search(ctx context.Context, query string) (string, error) {
	return "", nil
}

type fixedGenerator struct{}

func (fixedGenerator) Chat(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error) {
	return "<answer>🌽 Plant with first rains.</answer>", nil
}

func newAskRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	adv := advisor.New(fixedRetriever{}, noSearcher{}, fixedGenerator{}, nil, nil)
	engine := gin.New()
	engine.POST("/ask", NewAskHandler(adv).Ask)
	return engine
}

func TestAskReturnsAnswer(t *testing.T) {
	engine := newAskRouter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/ask",
		strings.NewReader(`{"conversation_id":"farmer-1","query":"when to plant maize"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "🌽 Plant with first rains.")
	require.Contains(t, rec.Body.String(), advisor.SourcePDFKnowledge)
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	engine := newAskRouter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/ask", strings.NewReader(`{"query":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	require.NotContains(t, rec.Body.String(), "Plant with first rains")
}
