package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const helixBaseURL = "https://api.twitch.tv/helix"

// HelixClient provides the minimal read-only methods needed for stream
// context analysis: user id resolution and live-stream lookup.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	BaseURL        string // override for tests; defaults to the Helix endpoint
	HTTPClient     *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return helixBaseURL
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return "", err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+"/users", nil)
	q := req.URL.Query()
	q.Set("login", login)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// StreamMeta describes one live stream as returned by /helix/streams.
type StreamMeta struct {
	Title        string
	GameName     string
	ThumbnailURL string
	ViewerCount  int
	StartedAt    string
}

// GetStreams returns live streams for a login (empty slice when offline).
func (hc *HelixClient) GetStreams(ctx context.Context, login string) ([]StreamMeta, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+"/streams", nil)
	q := req.URL.Query()
	q.Set("user_login", login)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("helix streams request failed: %s", resp.Status)
	}
	var body struct {
		Data []struct {
			Title        string `json:"title"`
			GameName     string `json:"game_name"`
			ThumbnailURL string `json:"thumbnail_url"`
			ViewerCount  int    `json:"viewer_count"`
			StartedAt    string `json:"started_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	out := make([]StreamMeta, 0, len(body.Data))
	for _, s := range body.Data {
		out = append(out, StreamMeta{
			Title:        s.Title,
			GameName:     s.GameName,
			ThumbnailURL: s.ThumbnailURL,
			ViewerCount:  s.ViewerCount,
			StartedAt:    s.StartedAt,
		})
	}
	return out, nil
}

// PreviewImageURL returns a concrete preview image URL for the first live
// stream of login, or empty string when the channel is offline or lookup
// fails. Helix thumbnail URLs carry {width}x{height} placeholders.
func (hc *HelixClient) PreviewImageURL(ctx context.Context, login string) string {
	streams, err := hc.GetStreams(ctx, login)
	if err != nil || len(streams) == 0 || streams[0].ThumbnailURL == "" {
		return ""
	}
	u := streams[0].ThumbnailURL
	u = strings.ReplaceAll(u, "{width}", "1280")
	u = strings.ReplaceAll(u, "{height}", "720")
	return u
}
