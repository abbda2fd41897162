// Package chat delivers generated messages to live Twitch channels over IRC.
//
// Delivery is strictly best-effort: it requires a per-account user OAuth token
// with chat:edit scope (stored encrypted on the account), and any failure is
// logged and swallowed so it can never fail a start-bots request. Accounts
// without a stored token simply have their messages persisted only.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// flushDelay gives the outgoing PRIVMSG a moment on the wire before the
// client disconnects.
const flushDelay = 500 * time.Millisecond

// Sender posts single messages over Twitch IRC. The zero value is a disabled
// sender whose Deliver is a no-op.
type Sender struct {
	Enabled bool
}

// Deliver connects as username with the given user OAuth token, says text in
// channel, and disconnects. Returns false when delivery was skipped or failed;
// errors are logged, never propagated.
func (s *Sender) Deliver(ctx context.Context, username, oauthToken, channel, text string) bool {
	if s == nil || !s.Enabled || oauthToken == "" || channel == "" {
		return false
	}
	client := twitch.NewClient(username, oauthToken)
	client.OnConnect(func() {
		client.Say(channel, text)
		go func() {
			time.Sleep(flushDelay)
			client.Disconnect()
		}()
	})
	client.Join(channel)

	done := make(chan error, 1)
	go func() { done <- client.Connect() }()

	select {
	case <-ctx.Done():
		_ = client.Disconnect()
		return false
	case err := <-done:
		if err != nil && !errors.Is(err, twitch.ErrClientDisconnected) {
			slog.Warn("chat delivery failed",
				slog.String("channel", channel),
				slog.String("bot", username),
				slog.Any("err", err))
			return false
		}
		return true
	}
}
