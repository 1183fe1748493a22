package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chitedze/agroadvisor/internal/model"
	errs "github.com/chitedze/agroadvisor/internal/pkg/errors"
	"github.com/chitedze/agroadvisor/internal/pkg/retry"
)

// NoInformation is the sentinel returned when the search ran fine but
// produced nothing usable. Callers must not feed it into prompts.
const NoInformation = "No information found"

const (
	defaultEndpoint   = "https://www.googleapis.com/customsearch/v1"
	defaultTimeout    = 10 * time.Second
	defaultMaxResults = 5
	topResultsUsed    = 3
	retryAttempts     = 3
	retryDelay        = time.Second
)

// errTransient wraps network-level failures so the retry policy can tell
// them apart from hard API errors.
var errTransient = fmt.Errorf("transient search failure")

func isTransient(err error) bool {
	return errors.Is(err, errTransient)
}

var (
	agriTerms     = []string{"agriculture", "farming", "crops"}
	locationTerms = []string{"malawi", "lilongwe", "central region"}
	trustedSites  = []string{"agriculture.gov.mw", "fao.org", "cgiar.org", "icrisat.org"}
)

type Config struct {
	APIKey         string `json:"api_key"`
	CSEID          string `json:"cse_id"`
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Client queries the Google Custom Search API with an agriculture- and
// location-biased query rewrite.
type Client struct {
	apiKey   string
	cseID    string
	endpoint string
	client   *http.Client
	policy   retry.Policy
}

func NewClient(cfg Config) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		cseID:    strings.TrimSpace(cfg.CSEID),
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		policy: retry.Policy{
			MaxAttempts: retryAttempts,
			Delay:       retryDelay,
			Retryable: func(err error) bool {
				return errs.IsRateLimited(err) || isTransient(err)
			},
		},
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.cseID != ""
}

// Search returns a formatted context block built from the top results.
// A run with no usable hits returns NoInformation; hard failures return
// an error the caller treats as "no web context".
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	logger := logutil.GetLogger(ctx)
	if !c.Configured() {
		if canned, ok := LocalResources(query); ok {
			logger.Info("search api not configured, using local resources")
			return canned, nil
		}
		return "", errs.ErrNotConfigured
	}

	enhanced := BuildSearchQuery(query)
	logger.Info("searching online", zap.String("query", enhanced))
	items, err := c.fetch(ctx, enhanced)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		// One fallback attempt with a simpler query before giving up.
		simple := fmt.Sprintf("%s Malawi agriculture", query)
		logger.Warn("no search results, retrying with simpler query", zap.String("query", simple))
		items, err = c.fetch(ctx, simple)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return NoInformation, nil
		}
	}
	return formatResults(query, items), nil
}

// Ping reports whether the search API currently answers queries; used for
// a startup self-check only.
func (c *Client) Ping(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	result, err := c.Search(ctx, "Malawi agriculture")
	return err == nil && result != NoInformation
}

// BuildSearchQuery appends agricultural and location bias terms when the
// raw query lacks them, then restricts to the trusted agricultural sites.
func BuildSearchQuery(query string) string {
	lower := strings.ToLower(query)
	enhanced := query
	if !containsAny(lower, agriTerms) {
		enhanced = fmt.Sprintf("%s agriculture farming", enhanced)
	}
	if !containsAny(lower, locationTerms) {
		enhanced = fmt.Sprintf("%s Malawi Lilongwe", enhanced)
	}
	clauses := make([]string, 0, len(trustedSites))
	for _, site := range trustedSites {
		clauses = append(clauses, "site:"+site)
	}
	return enhanced + " " + strings.Join(clauses, " OR ")
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

type searchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Snippet     string `json:"snippet"`
		Link        string `json:"link"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

func (c *Client) fetch(ctx context.Context, query string) ([]model.SearchResult, error) {
	var items []model.SearchResult
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		got, err := c.doRequest(ctx, query)
		if err != nil {
			return err
		}
		items = got
		return nil
	})
	return items, err
}

func (c *Client) doRequest(ctx context.Context, query string) ([]model.SearchResult, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cseID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(defaultMaxResults))
	params.Set("safe", "active")
	params.Set("fields", "items(title,snippet,link,displayLink)")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: search api", errs.ErrRateLimited)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: search api quota", errs.ErrQuotaExceeded)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("search api status %d", resp.StatusCode)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	results := make([]model.SearchResult, 0, len(out.Items))
	for _, item := range out.Items {
		results = append(results, model.SearchResult{
			Title:         item.Title,
			Snippet:       item.Snippet,
			Link:          item.Link,
			DisplaySource: item.DisplayLink,
		})
	}
	return results, nil
}

func formatResults(query string, items []model.SearchResult) string {
	top := items
	if len(top) > topResultsUsed {
		top = top[:topResultsUsed]
	}
	formatted := make([]string, 0, len(top))
	for _, item := range top {
		text := fmt.Sprintf("**%s**\n%s\n", item.Title, item.Snippet)
		if item.DisplaySource != "" {
			text += fmt.Sprintf("Source: %s\n", item.DisplaySource)
		}
		formatted = append(formatted, text)
	}
	summary := fmt.Sprintf("Found %d results for agricultural information about %s in Malawi.\n\n", len(items), query)
	return summary + strings.Join(formatted, "\n---\n")
}
