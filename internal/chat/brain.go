package chat

import (
	"fmt"
	"strings"

	"github.com/dieai/dieai/internal/model"
)

// queryKind classifies a user query to pick search strategy and
// response framing.
type queryKind string

const (
	kindGeneral       queryKind = "general"
	kindWeather       queryKind = "weather"
	kindNews          queryKind = "news"
	kindFinancial     queryKind = "financial"
	kindInstructional queryKind = "instructional"
	kindDefinitional  queryKind = "definitional"
)

// searchIndicators are phrases that suggest a query wants fresh or
// factual information from the web.
var searchIndicators = []string{
	"what is", "who is", "when did", "where is", "how to",
	"current", "latest", "recent", "today", "now", "news",
	"weather", "price", "stock", "market", "rate",
	"definition", "meaning", "explain", "tell me about",
}

// queryAnalysis is the result of classifying a query.
type queryAnalysis struct {
	kind        queryKind
	needsSearch bool
}

// analyzeQuery classifies a query by keyword heuristics.
func analyzeQuery(query string) queryAnalysis {
	lower := strings.ToLower(strings.TrimSpace(query))

	a := queryAnalysis{kind: kindGeneral}
	for _, indicator := range searchIndicators {
		if strings.Contains(lower, indicator) {
			a.needsSearch = true
			break
		}
	}

	switch {
	case containsAny(lower, "weather", "temperature", "forecast"):
		a.kind = kindWeather
	case containsAny(lower, "news", "breaking", "latest"):
		a.kind = kindNews
	case containsAny(lower, "price", "cost", "stock", "market"):
		a.kind = kindFinancial
	case containsAny(lower, "how to", "tutorial", "guide"):
		a.kind = kindInstructional
	case containsAny(lower, "what is", "define", "meaning"):
		a.kind = kindDefinitional
	}

	return a
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// rewriteSearchQuery adjusts the raw query for better provider results.
func rewriteSearchQuery(query string, a queryAnalysis) string {
	switch a.kind {
	case kindWeather:
		return "weather " + query
	case kindNews:
		return "latest news " + query
	case kindFinancial:
		return "current price " + query
	default:
		return query
	}
}

// synthesizeResponse builds an answer from search results, framed by
// query kind. Returns "" when the results carry no usable snippets.
func synthesizeResponse(query string, results []model.SearchResult) string {
	var snippets []string
	sources := make(map[string]bool)

	for _, r := range results {
		if len(snippets) >= 3 {
			break
		}
		if r.Snippet == "" {
			continue
		}
		snippets = append(snippets, r.Snippet)
		if r.Source != "" {
			sources[r.Source] = true
		}
	}

	if len(snippets) == 0 {
		return ""
	}

	info := strings.Join(snippets, " ")
	sourceList := strings.Join(sortedKeys(sources), ", ")

	switch analyzeQuery(query).kind {
	case kindDefinitional:
		return fmt.Sprintf("Based on current information:\n\n%s\n\nSources: %s", info, sourceList)
	case kindWeather:
		return fmt.Sprintf("Current weather information:\n\n%s\n\nData from: %s", info, sourceList)
	case kindNews:
		return fmt.Sprintf("Latest news:\n\n%s\n\nSources: %s", info, sourceList)
	case kindFinancial:
		return fmt.Sprintf("Current market information:\n\n%s\n\nData from: %s", info, sourceList)
	case kindInstructional:
		return fmt.Sprintf("Here's how to do it:\n\n%s\n\nBased on information from: %s", info, sourceList)
	default:
		return fmt.Sprintf("Based on my research:\n\n%s\n\nSources: %s", info, sourceList)
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	// Insertion sort; source sets are tiny
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// fallbackResponse answers conversational queries and anything the
// pipeline could not handle.
func fallbackResponse(query string) string {
	lower := strings.ToLower(query)

	switch {
	case strings.TrimSpace(query) == "":
		return "Please ask me a question or tell me what you'd like to know!"
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi "):
		return "Hello! I'm DieAI, your intelligent assistant. I can help you find information, answer questions, and work through math and science problems. What would you like to know?"
	case strings.Contains(lower, "how are you"):
		return "I'm functioning well and ready to help! Ask me a question and I'll search for current information or work it out directly."
	case strings.Contains(lower, "what can you do"):
		return "I can help you with:\n• Math: arithmetic, equations, geometry and unit conversions\n• Science: constants, formulas and facts\n• Finding current information on any topic via web search\n• Explaining concepts and definitions\n\nJust ask me anything!"
	case strings.Contains(lower, "thank"):
		return "You're welcome! I'm here whenever you need information or have questions."
	default:
		return fmt.Sprintf("I'd be happy to help you with '%s'. Could you be more specific about what you'd like to know?", query)
	}
}
