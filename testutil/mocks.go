// Package testutil provides httptest fakes for the two external services:
// the YouTube Data API and the OpenAI Assistants API.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockAPIServer routes requests to per-path handlers and 404s the rest.
type MockAPIServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

func newMockAPIServer(t *testing.T) *MockAPIServer {
	t.Helper()
	m := &MockAPIServer{Handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// MockYouTubeServer fakes the YouTube Data v3 endpoints the bot calls.
type MockYouTubeServer struct{ *MockAPIServer }

// NewMockYouTubeServer creates a mock YouTube API server. Point the service
// at it with option.WithEndpoint(srv.URL + "/").
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	return &MockYouTubeServer{newMockAPIServer(t)}
}

// MockVideoResponse serves videos.list with one live video.
func (m *MockYouTubeServer) MockVideoResponse(title, liveChatID string) {
	m.Handlers["/youtube/v3/videos"] = func(w http.ResponseWriter, r *http.Request) {
		item := map[string]any{
			"id":      r.URL.Query().Get("id"),
			"snippet": map[string]any{"title": title},
		}
		if liveChatID != "" {
			item["liveStreamingDetails"] = map[string]any{"activeLiveChatId": liveChatID}
		}
		writeJSON(w, map[string]any{"items": []any{item}})
	}
}

// ChatItem is one liveChatMessages.list item in mock responses.
type ChatItem struct {
	ID     string
	Author string
	Text   string
}

// MockChatListResponse serves liveChatMessages.list (GET) and records
// inserted messages (POST) on the same path, returning insertedID.
func (m *MockYouTubeServer) MockChatListResponse(items []ChatItem, nextToken, insertedID string, inserted *[]string) {
	m.Handlers["/youtube/v3/liveChat/messages"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body struct {
				Snippet struct {
					TextMessageDetails struct {
						MessageText string `json:"messageText"`
					} `json:"textMessageDetails"`
				} `json:"snippet"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if inserted != nil {
				*inserted = append(*inserted, body.Snippet.TextMessageDetails.MessageText)
			}
			writeJSON(w, map[string]any{"id": insertedID})
			return
		}
		out := make([]any, 0, len(items))
		for _, it := range items {
			out = append(out, map[string]any{
				"id":            it.ID,
				"snippet":       map[string]any{"displayMessage": it.Text},
				"authorDetails": map[string]any{"displayName": it.Author},
			})
		}
		writeJSON(w, map[string]any{"items": out, "nextPageToken": nextToken})
	}
}

// MockQuotaExceeded serves a 403 quotaExceeded error on path.
func (m *MockYouTubeServer) MockQuotaExceeded(path string) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
			"error": map[string]any{
				"code":    403,
				"message": "The request cannot be completed because you have exceeded your quota.",
				"errors":  []any{map[string]any{"reason": "quotaExceeded", "domain": "youtube.quota"}},
			},
		})
	}
}

// MockOpenAIServer fakes the Assistants API surface used by the bot.
// Point the client at it with BaseURL = srv.URL + "/v1".
type MockOpenAIServer struct{ *MockAPIServer }

// NewMockOpenAIServer creates a mock OpenAI API server.
func NewMockOpenAIServer(t *testing.T) *MockOpenAIServer {
	t.Helper()
	return &MockOpenAIServer{newMockAPIServer(t)}
}

// MockAssistant serves assistant retrieval for preflight checks.
func (m *MockOpenAIServer) MockAssistant(id, name string) {
	m.Handlers["/v1/assistants/"+id] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": id, "object": "assistant", "name": name})
	}
}

// MockThreadFlow wires thread creation, user message submission, run
// creation, and run retrieval. statuses is consumed one per poll; the last
// entry repeats once exhausted.
func (m *MockOpenAIServer) MockThreadFlow(threadID, runID string, statuses []string) {
	m.Handlers["/v1/threads"] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": threadID, "object": "thread"})
	}
	m.Handlers["/v1/threads/"+threadID+"/messages"] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "msg_user", "object": "thread.message"})
	}
	m.Handlers["/v1/threads/"+threadID+"/runs"] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": runID, "object": "thread.run", "status": "queued"})
	}
	polls := 0
	m.Handlers["/v1/threads/"+threadID+"/runs/"+runID] = func(w http.ResponseWriter, r *http.Request) {
		status := statuses[len(statuses)-1]
		if polls < len(statuses) {
			status = statuses[polls]
		}
		polls++
		run := map[string]any{"id": runID, "object": "thread.run", "status": status}
		if status == "failed" {
			run["last_error"] = map[string]any{"code": "server_error", "message": "boom"}
		}
		writeJSON(w, run)
	}
}

// MockThreadMessages serves the final message listing with a single
// assistant reply (newest-first ordering, as the real API returns).
func (m *MockOpenAIServer) MockThreadMessages(threadID, replyText string) {
	m.Handlers["/v1/threads/"+threadID+"/messages"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, map[string]any{"id": "msg_user", "object": "thread.message"})
			return
		}
		writeJSON(w, map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{
					"id":   "msg_reply",
					"role": "assistant",
					"content": []any{
						map[string]any{"type": "text", "text": map[string]any{"value": replyText}},
					},
				},
				map[string]any{
					"id":   "msg_user",
					"role": "user",
					"content": []any{
						map[string]any{"type": "text", "text": map[string]any{"value": "question"}},
					},
				},
			},
		})
	}
}
