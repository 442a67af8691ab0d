package youtubeapi

import (
	"context"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/thiagocaliman/youtube-live-chat-openai/testutil"
)

type recordingQuota struct {
	mu    sync.Mutex
	total int
	calls []int
}

func (r *recordingQuota) Record(ctx context.Context, units int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total += units
	r.calls = append(r.calls, units)
}

func newTestClient(t *testing.T, srv *testutil.MockYouTubeServer, q QuotaRecorder) *Client {
	t.Helper()
	svc, err := yt.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("youtube service: %v", err)
	}
	return NewClient(svc, q)
}

func TestResolveLiveChatID(t *testing.T) {
	srv := testutil.NewMockYouTubeServer(t)
	srv.MockVideoResponse("My Live Stream", "chat-abc")
	q := &recordingQuota{}
	c := newTestClient(t, srv, q)

	chatID, title, err := c.ResolveLiveChatID(context.Background(), "vid123")
	if err != nil {
		t.Fatalf("ResolveLiveChatID: %v", err)
	}
	if chatID != "chat-abc" || title != "My Live Stream" {
		t.Errorf("got chat=%q title=%q", chatID, title)
	}
	if q.total != CostVideosList {
		t.Errorf("charged %d units, want %d", q.total, CostVideosList)
	}
}

func TestResolveLiveChatIDNotLive(t *testing.T) {
	srv := testutil.NewMockYouTubeServer(t)
	srv.MockVideoResponse("An Upload", "")
	c := newTestClient(t, srv, nil)

	_, _, err := c.ResolveLiveChatID(context.Background(), "vid123")
	if err == nil || !strings.Contains(err.Error(), "live") {
		t.Errorf("expected not-a-live-broadcast error, got %v", err)
	}
}

func TestListMessagesThreadsPageToken(t *testing.T) {
	srv := testutil.NewMockYouTubeServer(t)
	srv.MockChatListResponse([]testutil.ChatItem{
		{ID: "m1", Author: "Alice", Text: "hello"},
		{ID: "m2", Author: "Bob", Text: "hi"},
	}, "token-2", "", nil)
	q := &recordingQuota{}
	c := newTestClient(t, srv, q)

	msgs, next, err := c.ListMessages(context.Background(), "chat-abc", "token-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].Author != "Bob" {
		t.Errorf("unexpected page: %+v", msgs)
	}
	if next != "token-2" {
		t.Errorf("next token = %q, want token-2", next)
	}
	if q.total != CostMessagesList {
		t.Errorf("charged %d units, want %d", q.total, CostMessagesList)
	}
}

func TestInsertMessageTruncatesAndCharges(t *testing.T) {
	srv := testutil.NewMockYouTubeServer(t)
	var inserted []string
	srv.MockChatListResponse(nil, "", "published-1", &inserted)
	q := &recordingQuota{}
	c := newTestClient(t, srv, q)

	long := strings.Repeat("a", 300)
	id, err := c.InsertMessage(context.Background(), "chat-abc", long)
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if id != "published-1" {
		t.Errorf("published id = %q", id)
	}
	if len(inserted) != 1 {
		t.Fatalf("inserted %d messages, want 1", len(inserted))
	}
	if len(inserted[0]) != MaxMessageLength || !strings.HasSuffix(inserted[0], "...") {
		t.Errorf("outbound length = %d suffix=%q, want exactly %d ending in ellipsis",
			len(inserted[0]), inserted[0][len(inserted[0])-3:], MaxMessageLength)
	}
	if q.total != CostMessagesInsert {
		t.Errorf("charged %d units, want %d", q.total, CostMessagesInsert)
	}
}

func TestQuotaExceededClassification(t *testing.T) {
	srv := testutil.NewMockYouTubeServer(t)
	srv.MockQuotaExceeded("/youtube/v3/liveChat/messages")
	c := newTestClient(t, srv, nil)

	_, _, err := c.ListMessages(context.Background(), "chat-abc", "")
	if err == nil {
		t.Fatalf("expected error from quota-exceeded response")
	}
	if !IsQuotaExceeded(err) {
		t.Errorf("IsQuotaExceeded(%v) = false, want true", err)
	}
}

func TestIsQuotaExceededIgnoresOtherErrors(t *testing.T) {
	srv := testutil.NewMockYouTubeServer(t)
	// No handler registered: the mock returns 404.
	c := newTestClient(t, srv, nil)
	_, _, err := c.ListMessages(context.Background(), "chat-abc", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsQuotaExceeded(err) {
		t.Errorf("404 misclassified as quota exhaustion")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 200, "short"},
		{strings.Repeat("x", 200), 200, strings.Repeat("x", 200)},
		{strings.Repeat("x", 201), 200, strings.Repeat("x", 197) + "..."},
		{"hello world", 8, "hello..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%d chars, %d) = %q, want %q", len(tt.in), tt.limit, got, tt.want)
		}
	}
}
