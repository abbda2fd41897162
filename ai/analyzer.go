package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// StreamContext is one analyzed description of current stream activity.
type StreamContext struct {
	Analysis  string
	Game      string
	Activity  string
	Reactions []string
	FromImage bool
}

const analyzeSystemPrompt = "You are an expert on Twitch streams. You analyze the context and mood of live broadcasts."

const visionPrompt = `Look at this live stream preview frame from the channel %q.
Respond with a JSON object only, no prose, with these fields:
  "activity": what the streamer is doing right now, a few words
  "game": the game or content type, a few words (empty string if unclear)
  "analysis": 2-3 sentences describing topic and mood
  "reactions": an array of 3-5 short plausible viewer chat reactions`

const guessPrompt = `You are analyzing the Twitch stream of channel %q.
Based on typical streamer activity, guess what is happening on the stream
right now. Describe the topic, the mood, and what is being discussed in 2-3
sentences. Be creative but realistic.`

// visionResult is the structured shape requested from the vision model.
type visionResult struct {
	Activity  string   `json:"activity"`
	Game      string   `json:"game"`
	Analysis  string   `json:"analysis"`
	Reactions []string `json:"reactions"`
}

// AnalyzeStream produces a short description of current stream activity.
// When previewURL is non-empty the vision path is used; otherwise a pure-text
// guess. The second return value is false when the capability is unavailable
// (nil client or API failure), in which case the returned context is the fixed
// generic sentence. This call never returns an error: it must not abort the
// orchestration flow.
func (c *Client) AnalyzeStream(ctx context.Context, channelName, previewURL string) (StreamContext, bool) {
	if c == nil {
		return StreamContext{Analysis: GenericContext}, false
	}
	if previewURL != "" {
		if sc, ok := c.analyzeImage(ctx, channelName, previewURL); ok {
			return sc, true
		}
		// Vision failed; fall through to the text-only guess.
	}
	return c.guessContext(ctx, channelName)
}

func (c *Client) analyzeImage(ctx context.Context, channelName, previewURL string) (StreamContext, bool) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzeSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: fmt.Sprintf(visionPrompt, channelName)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: previewURL}},
				},
			},
		},
		Temperature: 0.8,
		MaxTokens:   300,
	})
	if err != nil || len(resp.Choices) == 0 {
		return StreamContext{}, false
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)

	var parsed visionResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil || parsed.Analysis == "" {
		// Degrade gracefully: wrap the raw text as the analysis field.
		return StreamContext{
			Analysis:  raw,
			Reactions: defaultReactions,
			FromImage: true,
		}, true
	}
	reactions := parsed.Reactions
	if len(reactions) == 0 {
		reactions = defaultReactions
	}
	return StreamContext{
		Analysis:  parsed.Analysis,
		Game:      parsed.Game,
		Activity:  parsed.Activity,
		Reactions: reactions,
		FromImage: true,
	}, true
}

func (c *Client) guessContext(ctx context.Context, channelName string) (StreamContext, bool) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(guessPrompt, channelName)},
		},
		Temperature: 0.8,
		MaxTokens:   150,
	})
	if err != nil || len(resp.Choices) == 0 {
		return StreamContext{Analysis: GenericContext}, false
	}
	analysis := strings.TrimSpace(resp.Choices[0].Message.Content)
	if analysis == "" {
		return StreamContext{Analysis: GenericContext}, false
	}
	return StreamContext{Analysis: analysis}, true
}

// stripCodeFence removes a surrounding markdown code fence if present, since
// models frequently wrap requested JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
