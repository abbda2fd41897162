package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestStack spins up a fake token endpoint and a fake Helix API, and
// returns a client wired to both.
func newTestStack(t *testing.T, helix http.HandlerFunc) *HelixClient {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "app-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokenSrv.Close)
	helixSrv := httptest.NewServer(helix)
	t.Cleanup(helixSrv.Close)

	return &HelixClient{
		AppTokenSource: &TokenSource{
			ClientID:     "cid",
			ClientSecret: "secret",
			TokenURL:     tokenSrv.URL,
		},
		ClientID: "cid",
		BaseURL:  helixSrv.URL,
	}
}

func TestTokenSourceMissingCredentials(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTokenSourceWithHTTPClient(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "app-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenSrv.Close()

	calls := 0
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return http.DefaultTransport.RoundTrip(r)
	})}

	ts := &TokenSource{ClientID: "cid", ClientSecret: "secret", TokenURL: tokenSrv.URL}
	tok, err := ts.Get(WithHTTPClient(context.Background(), hc))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tok != "app-token" {
		t.Errorf("token = %q", tok)
	}
	if calls == 0 {
		t.Error("token request did not go through the injected client")
	}
}

func TestGetStreamsSetsHeaders(t *testing.T) {
	hc := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Client-Id"); got != "cid" {
			t.Errorf("Client-Id = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer app-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("user_login"); got != "somechannel" {
			t.Errorf("user_login = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"title":         "test stream",
				"game_name":     "Chess",
				"thumbnail_url": "https://cdn.example/preview-{width}x{height}.jpg",
				"viewer_count":  42,
				"started_at":    "2025-01-01T00:00:00Z",
			}},
		})
	})

	streams, err := hc.GetStreams(context.Background(), "somechannel")
	if err != nil {
		t.Fatalf("GetStreams: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want 1", len(streams))
	}
	if streams[0].GameName != "Chess" || streams[0].ViewerCount != 42 {
		t.Errorf("unexpected stream meta: %+v", streams[0])
	}
}

func TestGetStreamsOffline(t *testing.T) {
	hc := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	streams, err := hc.GetStreams(context.Background(), "somechannel")
	if err != nil {
		t.Fatalf("GetStreams: %v", err)
	}
	if len(streams) != 0 {
		t.Errorf("expected no streams for offline channel, got %d", len(streams))
	}
}

func TestPreviewImageURL(t *testing.T) {
	hc := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"thumbnail_url": "https://cdn.example/preview-{width}x{height}.jpg",
			}},
		})
	})
	got := hc.PreviewImageURL(context.Background(), "somechannel")
	want := "https://cdn.example/preview-1280x720.jpg"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPreviewImageURLFailureIsEmpty(t *testing.T) {
	hc := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if got := hc.PreviewImageURL(context.Background(), "somechannel"); got != "" {
		t.Errorf("expected empty preview URL on failure, got %q", got)
	}
}

func TestGetUserID(t *testing.T) {
	hc := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "12345"}},
		})
	})
	id, err := hc.GetUserID(context.Background(), "somechannel")
	if err != nil {
		t.Fatalf("GetUserID: %v", err)
	}
	if id != "12345" {
		t.Errorf("got %q, want 12345", id)
	}
}
