package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatapp-gateway/internal/archive"
	"chatapp-gateway/internal/gateway"
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"
	"chatapp-gateway/internal/store"

	"go.uber.org/zap"
)

type fakeSource struct {
	store *store.Store
	ready bool
}

func (f *fakeSource) Status() gateway.Status      { return gateway.StatusConnected }
func (f *fakeSource) Ping() (time.Duration, bool) { return 42 * time.Millisecond, true }
func (f *fakeSource) Ready() bool                 { return f.ready }
func (f *fakeSource) User() *models.User          { return f.store.Self() }
func (f *fakeSource) Store() *store.Store         { return f.store }

type fakeHistory struct {
	channelID snowflake.ID
	limit     int
	err       error
}

func (f *fakeHistory) Messages(ctx context.Context, channelID snowflake.ID, limit int) ([]archive.ArchivedMessage, error) {
	f.channelID = channelID
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []archive.ArchivedMessage{{ID: 9, ChannelID: channelID, Message: "archived"}}, nil
}

func decode[T any](t *testing.T, payload string) *T {
	t.Helper()
	var data T
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		t.Fatalf("failed to decode %s: %v", payload, err)
	}
	return &data
}

func newTestServer(t *testing.T, history History) *httptest.Server {
	t.Helper()
	st := store.New(zap.NewNop().Sugar(), 10)
	st.Ready(decode[models.ReadyData](t, `{"user": {"id": "100", "username": "me"}}`))
	st.UpsertServer(decode[models.ServerData](t, `{"id": "1", "name": "Dank", "channels": [{"id": "3", "name": "general"}]}`))
	st.CreateMessage(decode[models.MessageData](t, `{"id": "50", "server_id": "1", "channel_id": "3", "author": {"id": "100"}, "content": "hi"}`))

	source := &fakeSource{store: st, ready: true}
	server := httptest.NewServer(New(zap.NewNop().Sugar(), source, history, false).Handler())
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string, value any) int {
	t.Helper()
	response, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusOK && value != nil {
		if err := json.NewDecoder(response.Body).Decode(value); err != nil {
			t.Fatal(err)
		}
	}
	return response.StatusCode
}

func TestGetStatus(t *testing.T) {
	server := newTestServer(t, nil)

	var status statusResponse
	if code := get(t, server.URL+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("unexpected status code %d", code)
	}

	if status.Status != string(gateway.StatusConnected) || !status.Ready {
		t.Errorf("unexpected state: %+v", status)
	}
	if status.PingMs == nil || *status.PingMs != 42 {
		t.Errorf("expected a 42ms ping, got %v", status.PingMs)
	}
	if status.UserID != 100 || status.Username != "me" || status.Servers != 1 || status.Users != 1 {
		t.Errorf("unexpected counts: %+v", status)
	}
}

func TestServerRoutes(t *testing.T) {
	server := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"server list", "/api/servers", http.StatusOK},
		{"cached server", "/api/servers/1", http.StatusOK},
		{"unknown server", "/api/servers/2", http.StatusNotFound},
		{"malformed server id", "/api/servers/abc", http.StatusBadRequest},
		{"cached channel", "/api/servers/1/channels/3/messages", http.StatusOK},
		{"unknown channel", "/api/servers/1/channels/4/messages", http.StatusNotFound},
		{"archive disabled", "/api/archive/channels/3/messages", http.StatusNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if code := get(t, server.URL+test.path, nil); code != test.code {
				t.Fatalf("expected %d, got %d", test.code, code)
			}
		})
	}

	var summary store.ServerSummary
	get(t, server.URL+"/api/servers/1", &summary)
	if summary.Name != "Dank" || len(summary.Channels) != 1 || summary.Channels[0].CachedMessages != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	var messages []store.MessageSummary
	get(t, server.URL+"/api/servers/1/channels/3/messages", &messages)
	if len(messages) != 1 || messages[0].Content != "hi" || messages[0].Author != "me" {
		t.Errorf("unexpected messages: %+v", messages)
	}
}

func TestArchiveRoute(t *testing.T) {
	history := &fakeHistory{}
	server := newTestServer(t, history)

	var messages []archive.ArchivedMessage
	if code := get(t, server.URL+"/api/archive/channels/3/messages?limit=5", &messages); code != http.StatusOK {
		t.Fatalf("unexpected status code %d", code)
	}
	if history.channelID != 3 || history.limit != 5 {
		t.Errorf("expected channel 3 with limit 5, got %d and %d", history.channelID, history.limit)
	}
	if len(messages) != 1 || messages[0].Message != "archived" {
		t.Errorf("unexpected messages: %+v", messages)
	}

	get(t, server.URL+"/api/archive/channels/3/messages", nil)
	if history.limit != defaultArchiveLimit {
		t.Errorf("expected the default limit, got %d", history.limit)
	}

	if code := get(t, server.URL+"/api/archive/channels/3/messages?limit=0", nil); code != http.StatusBadRequest {
		t.Errorf("expected a rejected limit, got %d", code)
	}

	history.err = errors.New("database is gone")
	if code := get(t, server.URL+"/api/archive/channels/3/messages", nil); code != http.StatusInternalServerError {
		t.Errorf("expected an internal error, got %d", code)
	}
}
