// Package ai wraps the OpenAI API for stream context analysis and chat
// message generation. Both capabilities are designed to never fail the
// caller: every error path degrades to a static fallback, and availability is
// reported as an explicit ok value so orchestration can branch on it.
package ai

import (
	"math/rand"

	openai "github.com/sashabaranov/go-openai"
)

// GenericContext is the fixed context sentence used when analysis is
// unavailable for any reason.
const GenericContext = "the streamer is running a normal broadcast, interacting with the audience"

// fallbackPool is the static phrase pool used whenever generation is
// unavailable. Messages are deliberately short, chat-flavored, and mixed
// Russian/English like real Twitch chatter.
var fallbackPool = []string{
	"Интересно!",
	"Круто получается",
	"PogChamp",
	"Продолжай!",
	"Respect",
	"Классный момент",
	"LUL",
	"Отлично!",
}

// defaultReactions backs the analyzer when the model output cannot be parsed
// into a structured result.
var defaultReactions = []string{"PogChamp", "KEKW", "Nice!"}

// Client calls the OpenAI API. A nil *Client is valid and means AI is
// disabled: all methods return their static fallbacks with ok=false.
type Client struct {
	api   *openai.Client
	model string
}

// New returns a Client for the given key and model, or nil when the key is
// empty (AI silently disabled).
func New(apiKey, model string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{api: openai.NewClient(apiKey), model: model}
}

// NewWithConfig builds a Client from a full client config (test seam for
// pointing BaseURL at a mock server).
func NewWithConfig(cfg openai.ClientConfig, model string) *Client {
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// Fallback returns a pseudo-random pick from the static phrase pool.
func Fallback() string {
	//nolint:gosec // G404: variety, not security
	return fallbackPool[rand.Intn(len(fallbackPool))]
}

// FallbackPool exposes a copy of the static phrase pool (used by tests and
// the orchestrator's pool-exhaustion path).
func FallbackPool() []string {
	out := make([]string, len(fallbackPool))
	copy(out, fallbackPool)
	return out
}
