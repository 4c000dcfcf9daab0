// Package tokens estimates the token cost of conversation logs, used
// to report how much a compaction run saved.
package tokens

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/logpack/logpack/types"
)

// messageOverhead approximates the per-message framing cost.
const messageOverhead = 4

// Approximate provides fast token estimation without an API call.
func Approximate(content string) int {
	// Roughly 3.5 characters per token for English text.
	return len(content) * 10 / 35
}

// Sum estimates the total token count of a message sequence.
func Sum(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += Approximate(msg.Content) + messageOverhead
	}
	return total
}

// Counter counts tokens via the Anthropic count-tokens API, with
// caching and an approximation fallback. A Counter with a nil client
// always approximates, so callers never need an API key just to get a
// savings report.
type Counter struct {
	client *anthropic.Client
	model  string

	mu    sync.Mutex
	cache map[string]int
}

// NewCounter creates a counter. client may be nil.
func NewCounter(client *anthropic.Client, model string) *Counter {
	return &Counter{
		client: client,
		model:  model,
		cache:  make(map[string]int),
	}
}

// Count returns the token count for the message sequence. API failures
// degrade to the approximation rather than erroring, since a savings
// report is advisory.
func (c *Counter) Count(ctx context.Context, messages []*types.Message) int {
	if c.client == nil || len(messages) == 0 {
		return Sum(messages)
	}

	key := cacheKey(messages)
	c.mu.Lock()
	if count, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return count
	}
	c.mu.Unlock()

	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		role := anthropic.MessageParamRoleUser
		if msg.Role == types.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		params = append(params, anthropic.MessageParam{
			Role: role,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(msg.Content),
			},
		})
	}

	resp, err := c.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(c.model),
		Messages: params,
	})
	if err != nil {
		return Sum(messages)
	}

	count := int(resp.InputTokens)
	c.mu.Lock()
	c.cache[key] = count
	c.mu.Unlock()
	return count
}

func cacheKey(messages []*types.Message) string {
	h := sha256.New()
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}
