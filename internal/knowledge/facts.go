package knowledge

import (
	_ "embed"
	"strings"
)

//go:embed data.txt
var factData string

// Fact is a single entry from the embedded fact base.
type Fact struct {
	Section string
	Text    string
}

// FactBase holds the parsed fact base and supports keyword search.
type FactBase struct {
	facts []Fact
}

// NewFactBase parses the embedded fact file.
func NewFactBase() *FactBase {
	return &FactBase{facts: parseFacts(factData)}
}

// parseFacts reads the [Section] / fact-per-line format.
func parseFacts(data string) []Fact {
	var facts []Fact
	section := "General"

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			continue
		}
		facts = append(facts, Fact{Section: section, Text: line})
	}

	return facts
}

// Sections returns the distinct section names in file order.
func (fb *FactBase) Sections() []string {
	var sections []string
	seen := make(map[string]bool)
	for _, f := range fb.facts {
		if !seen[f.Section] {
			seen[f.Section] = true
			sections = append(sections, f.Section)
		}
	}
	return sections
}

// Len returns the number of facts loaded.
func (fb *FactBase) Len() int {
	return len(fb.facts)
}

// Search returns facts ranked by keyword overlap with the query.
// Words shorter than 3 characters are ignored, matching the knowledge
// library's keyword extraction.
func (fb *FactBase) Search(query string, limit int) []Fact {
	if limit <= 0 {
		limit = 3
	}

	keywords := extractKeywords(query)
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		fact  Fact
		score int
	}

	var matches []scored
	for _, f := range fb.facts {
		lower := strings.ToLower(f.Text + " " + f.Section)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{fact: f, score: score})
		}
	}

	// Stable selection sort keeps file order among equal scores
	for i := 0; i < len(matches) && i < limit; i++ {
		best := i
		for j := i + 1; j < len(matches); j++ {
			if matches[j].score > matches[best].score {
				best = j
			}
		}
		matches[i], matches[best] = matches[best], matches[i]
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}

	facts := make([]Fact, len(matches))
	for i, m := range matches {
		facts[i] = m.fact
	}
	return facts
}

// extractKeywords lowercases and splits a query, keeping words of 3+ letters
// and dropping common stop words.
func extractKeywords(query string) []string {
	stopWords := map[string]bool{
		"the": true, "and": true, "for": true, "what": true, "who": true,
		"when": true, "where": true, "how": true, "why": true, "can": true,
		"you": true, "tell": true, "about": true, "does": true, "are": true,
		"is": true, "was": true, "explain": true, "define": true, "with": true,
		"there": true, "here": true, "this": true, "that": true, "hello": true,
		"please": true, "thanks": true, "thank": true,
	}

	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, "?!.,;:'\"")
		if len(word) < 3 || stopWords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}
