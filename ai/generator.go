package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// maxMessageLen rejects runaway generations; anything at or over this length
// is replaced by the fixed fallback phrase.
const maxMessageLen = 100

// overlongFallback replaces a rejected overlong generation.
const overlongFallback = "Отличный стрим! PogChamp"

// prevWindow is how many previous messages are included in the prompt as a
// repetition hint. This is strictly a prompt hint, not a dedup guarantee.
const prevWindow = 5

const generateSystemPrompt = "You are an ordinary Twitch viewer. You write short, lively chat comments."

const generatePrompt = `Stream context: %s

Recent chat messages:
%s

Write ONE short chat message (2-8 words) for Twitch chat, as a viewer.
Requirements:
- Natural, like real viewers write
- Matches the stream context
- May be in Russian or English
- May include Twitch emotes: PogChamp, Kappa, LUL, KEKW, Pog, Sadge, omegalul
- No quotes, no explanations, only the message itself`

// GenerateMessage produces one short chat-style message conditioned on the
// context and a rolling window of previous messages. The second return value
// is false when generation was unavailable and a static fallback was used
// instead. This call never returns an error.
func (c *Client) GenerateMessage(ctx context.Context, streamContext string, previous []string) (string, bool) {
	if c == nil {
		return Fallback(), false
	}
	if len(previous) > prevWindow {
		previous = previous[len(previous)-prevWindow:]
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(generatePrompt, streamContext, strings.Join(previous, "\n"))},
		},
		Temperature: 1.0,
		MaxTokens:   30,
	})
	if err != nil || len(resp.Choices) == 0 {
		return Fallback(), false
	}
	msg := strings.TrimSpace(resp.Choices[0].Message.Content)
	msg = strings.Trim(msg, `"'`)
	if msg == "" {
		return Fallback(), false
	}
	if len(msg) >= maxMessageLen {
		return overlongFallback, true
	}
	return msg, true
}

// GenerateBatch calls the single-message generator up to n times, feeding its
// own growing output back as the previous-message window each iteration.
// Failed generations are dropped rather than padded with static fallbacks, so
// the returned slice holds only model output; ok reports whether anything was
// generated at all. There is no batch API call and no deduplication beyond
// the prompt hint.
func (c *Client) GenerateBatch(ctx context.Context, streamContext string, n int) ([]string, bool) {
	messages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		msg, ok := c.GenerateMessage(ctx, streamContext, messages)
		if !ok {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, len(messages) > 0
}
