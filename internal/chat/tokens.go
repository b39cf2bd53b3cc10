package chat

import (
	"strings"

	"github.com/dieai/dieai/internal/model"
)

// CountTokens approximates token count as whitespace-delimited words.
// The placeholder model ships without a tokenizer, so usage accounting
// uses word counts instead.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// CountMessageTokens sums token counts across conversation messages.
func CountMessageTokens(messages []model.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += CountTokens(m.Content)
	}
	return total
}

// usageFor builds the usage block for a prompt/completion pair.
func usageFor(messages []model.ChatMessage, completion string) model.ChatUsage {
	prompt := CountMessageTokens(messages)
	comp := CountTokens(completion)
	return model.ChatUsage{
		PromptTokens:     prompt,
		CompletionTokens: comp,
		TotalTokens:      prompt + comp,
	}
}
