package advisor

import (
	"fmt"
	"strings"

	"github.com/chitedze/agroadvisor/internal/search"
)

// Source labels recorded with each answered query. They attribute where the
// context came from and never change generation behaviour.
const (
	SourcePDFKnowledge = "pdf_knowledge"
	SourceOnlineSearch = "online_search"
	SourcePDFAndOnline = "pdf_and_online"
	SourceAIFallback   = "ai_fallback"
)

// NoContextPlaceholder is substituted into the prompt when neither the
// document index nor the web search produced anything.
const NoContextPlaceholder = "No context information was available."

// ComposeContext merges retrieved document chunks and the web search text
// into a single context block and picks the source label.
func ComposeContext(chunks []string, searchText string) (string, string) {
	source := SourceAIFallback

	var docPart string
	if len(chunks) > 0 {
		docPart = "PDF Document Context:\n" + strings.Join(chunks, "\n---\n")
		source = SourcePDFKnowledge
	}

	var webPart string
	if searchText != "" && searchText != search.NoInformation {
		webPart = "Online Search Context:\n" + searchText
		if source == SourceAIFallback {
			source = SourceOnlineSearch
		} else {
			source = SourcePDFAndOnline
		}
	}

	full := strings.TrimSpace(fmt.Sprintf("%s\n\n%s", docPart, webPart))
	if full == "" {
		full = NoContextPlaceholder
	}
	return full, source
}
