package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates prompt sizes so conversation history can be trimmed
// to a budget before it is sent to the model. It uses the cl100k_base BPE when
// available and falls back to a bytes/4 heuristic when the encoding cannot be
// loaded (e.g. no network to fetch the vocabulary).
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenCounter creates a token counter. Encoding load is deferred to the
// first Count call.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Count returns the estimated token count of text.
func (tc *TokenCounter) Count(text string) int {
	tc.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tc.enc = enc
		}
	})
	if tc.enc != nil {
		return len(tc.enc.Encode(text, nil, nil))
	}
	// Rough heuristic: ~4 bytes per token for English text.
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
