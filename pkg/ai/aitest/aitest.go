// Package aitest provides a scripted ai.GraphAIClient for tests.
package aitest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/graphrag-chat/backend/pkg/ai"
)

// ErrNoReply is returned when a text call finds the reply queue empty and no
// ChatFunc is set.
var ErrNoReply = errors.New("aitest: no scripted reply")

// EmbeddingDim is the size of vectors produced by the default embedder.
const EmbeddingDim = 64

// Reply is one scripted answer for a text producing call.
type Reply struct {
	Text string
	Err  error
}

// Client is a thread-safe fake. Text calls (GenerateChat, GenerateCompletion,
// GenerateChatStream) consume queued replies in order unless ChatFunc is set.
type Client struct {
	// ChatFunc, when set, answers every text call.
	ChatFunc func(ctx context.Context, messages []ai.ChatMessage, opts ai.GenerateOptions) (string, error)
	// FormatFunc answers GenerateCompletionWithFormat. Without it the call
	// consumes a queued reply and decodes it with ai.UnmarshalFlexible.
	FormatFunc func(ctx context.Context, prompt string, out any) error
	// EmbedFunc overrides the default hashed bag-of-words embedding.
	EmbedFunc func(ctx context.Context, input []byte) ([]float32, error)

	mu       sync.Mutex
	replies  []Reply
	calls    map[string]int
	messages [][]ai.ChatMessage
	options  []ai.GenerateOptions
	metrics  ai.ModelMetrics
}

// New returns a client with the given replies queued.
func New(replies ...Reply) *Client {
	return &Client{replies: replies, calls: map[string]int{}}
}

// Texts is shorthand for New with successful replies.
func Texts(texts ...string) *Client {
	c := New()
	for _, t := range texts {
		c.Queue(Reply{Text: t})
	}
	return c
}

// Queue appends scripted replies.
func (c *Client) Queue(replies ...Reply) {
	c.mu.Lock()
	c.replies = append(c.replies, replies...)
	c.mu.Unlock()
}

// Calls reports how many times op was invoked. op is the method name, e.g.
// "GenerateChat".
func (c *Client) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Messages returns the message lists of every text call in call order.
func (c *Client) Messages() [][]ai.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]ai.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Options returns the resolved options of every text call in call order.
func (c *Client) Options() []ai.GenerateOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ai.GenerateOptions, len(c.options))
	copy(out, c.options)
	return out
}

func (c *Client) record(op string, messages []ai.ChatMessage, opts []ai.GenerateOption) ai.GenerateOptions {
	o := ai.ApplyOptions(ai.GenerateOptions{}, opts...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[op]++
	if messages != nil {
		c.messages = append(c.messages, messages)
		c.options = append(c.options, o)
	}
	c.metrics.InputTokens++
	return o
}

func (c *Client) next() Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return Reply{Err: ErrNoReply}
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r
}

func (c *Client) text(ctx context.Context, messages []ai.ChatMessage, o ai.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.ChatFunc != nil {
		return c.ChatFunc(ctx, messages, o)
	}
	r := c.next()
	return r.Text, r.Err
}

func (c *Client) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	msgs := []ai.ChatMessage{{Role: ai.RoleUser, Message: prompt}}
	o := c.record("GenerateCompletion", msgs, opts)
	return c.text(ctx, msgs, o)
}

func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	c.record("GenerateCompletionWithFormat", nil, opts)
	if c.FormatFunc != nil {
		return c.FormatFunc(ctx, prompt, out)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r := c.next()
	if r.Err != nil {
		return r.Err
	}
	return ai.UnmarshalFlexible(r.Text, out)
}

func (c *Client) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	o := c.record("GenerateChat", messages, opts)
	return c.text(ctx, messages, o)
}

// GenerateChatStream emits the reply in fragments of a few runes. A scripted
// error is delivered as a terminal error event.
func (c *Client) GenerateChatStream(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	o := c.record("GenerateChatStream", messages, opts)
	text, err := c.text(ctx, messages, o)

	out := make(chan ai.StreamEvent, len(text)+1)
	for _, frag := range Fragments(text, 4) {
		out <- ai.StreamEvent{Type: ai.StreamEventContent, Content: frag}
	}
	if err != nil {
		out <- ai.StreamEvent{Type: ai.StreamEventError, Err: err}
	}
	close(out)
	return out, nil
}

func (c *Client) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	c.record("GenerateEmbedding", nil, nil)
	if c.EmbedFunc != nil {
		return c.EmbedFunc(ctx, input)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return HashEmbedding(string(input)), nil
}

func (c *Client) ResetMetrics() {
	c.mu.Lock()
	c.metrics = ai.ModelMetrics{}
	c.mu.Unlock()
}

func (c *Client) GetMetrics() ai.ModelMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Fragments splits s into pieces of at most n runes.
func Fragments(s string, n int) []string {
	if s == "" {
		return nil
	}
	if n <= 0 {
		return []string{s}
	}
	var out []string
	for len(s) > 0 {
		i, count := 0, 0
		for i < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			count++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}

// HashEmbedding maps each lower-cased word and each rune bigram onto a fixed
// bucket and L2-normalizes the counts. Texts sharing vocabulary score high
// under cosine similarity.
func HashEmbedding(text string) []float32 {
	vec := make([]float32, EmbeddingDim)
	add := func(tok string) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%EmbeddingDim]++
	}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		add(w)
		runes := []rune(w)
		for i := 0; i+1 < len(runes); i++ {
			add(string(runes[i : i+2]))
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}

var _ ai.GraphAIClient = (*Client)(nil)
