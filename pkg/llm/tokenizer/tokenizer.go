// Package tokenizer counts tokens client-side with tiktoken, falling back to a
// character estimate when the encoding cannot be loaded.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/testforge/pkg/types"
)

// DefaultEncoding is used for every model; exact counts are not required.
const DefaultEncoding = "cl100k_base"

// perMessageOverhead approximates the role and framing tokens of one chat message.
const perMessageOverhead = 3

// Tokenizer counts tokens with a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
	mu  sync.Mutex
}

// New loads the default encoding. tiktoken may need network access the first
// time; callers should treat an error as "use Estimate".
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", DefaultEncoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the token count of text.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return Estimate(text)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens returns the token count of a conversation.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountTokens(msg.Content) + t.CountTokens(string(msg.Role)) + perMessageOverhead
	}
	return total
}

// Estimate approximates tokens as one per four bytes, rounding up.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}
