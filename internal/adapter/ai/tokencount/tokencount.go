// Package tokencount provides token counting for LLM API calls.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken library, so prompt
// sizes can be logged and tracked accurately before each chat call.
package tokencount

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting with per-model encoding cache.
type Counter struct {
	mu            sync.RWMutex
	encodingCache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// CountTokens returns the token count of text for the given model. When no
// encoding can be resolved it falls back to a bytes/4 estimate, which is
// close enough for logging purposes.
func (c *Counter) CountTokens(model, text string) int {
	enc, err := c.encodingFor(model)
	if err != nil {
		slog.Debug("token encoding unavailable, estimating",
			slog.String("model", model), slog.Any("error", err))
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	c.mu.RLock()
	if enc, ok := c.encodingCache[model]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// cl100k_base covers GPT-4, GPT-3.5-turbo, and most modern models.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[model] = enc
	return enc, nil
}
