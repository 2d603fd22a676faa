package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	serp "github.com/ericgreene/go-serp"
)

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// SearchConfig holds configuration for web search.
type SearchConfig struct {
	MaxResults int
	SafeSearch bool
}

// DefaultSearchConfig returns the standard search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{MaxResults: 5, SafeSearch: true}
}

// Researcher enriches think prompts with current web search findings
// before they reach the model.
type Researcher struct {
	apiKey  string
	config  SearchConfig
	queries []string
}

// NewResearcher creates a researcher that runs the given queries each
// cycle. Queries usually name the markets the agent trades.
func NewResearcher(apiKey string, config SearchConfig, queries []string) (*Researcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serp api key is required")
	}
	if config.MaxResults <= 0 {
		config = DefaultSearchConfig()
	}
	return &Researcher{apiKey: apiKey, config: config, queries: queries}, nil
}

// Enrich prepends research findings to the prompt. The context is checked
// between queries so a paused agent does not keep searching.
func (r *Researcher) Enrich(ctx context.Context, prompt string) (string, error) {
	if len(r.queries) == 0 {
		return prompt, nil
	}

	var findings strings.Builder
	findings.WriteString("Recent market research findings:\n")
	found := false
	for _, query := range r.queries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		results, err := r.search(query)
		if err != nil {
			return "", err
		}
		for _, result := range results {
			fmt.Fprintf(&findings, "- %s\n  %s\n", result.Title, result.Snippet)
			found = true
		}
	}
	if !found {
		return prompt, nil
	}
	return findings.String() + "\n" + prompt, nil
}

func (r *Researcher) search(query string) ([]SearchResult, error) {
	parameter := map[string]string{
		"q":   query,
		"key": r.apiKey,
		"num": strconv.Itoa(r.config.MaxResults),
	}
	if r.config.SafeSearch {
		parameter["safe"] = "active"
	}

	queryResponse := serp.NewGoogleSearch(parameter)
	results, err := queryResponse.GetJSON()
	if err != nil {
		return nil, err
	}

	var searchResults []SearchResult
	for _, result := range results.OrganicResults {
		searchResults = append(searchResults, SearchResult{
			Title:   result.Title,
			Snippet: result.Snippet,
			Link:    result.Link,
		})
	}
	return searchResults, nil
}
