// Package youtubeapi wraps the YouTube Data API v3 calls the bot needs:
// resolving a broadcast's live chat id, paging through live chat messages,
// and inserting replies. Every call carries a fixed metered quota cost that
// is charged against the daily budget before the request goes out.
package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"
)

// Metered cost per API call, in quota units.
const (
	CostVideosList     = 1
	CostMessagesList   = 5
	CostMessagesInsert = 50
)

// MaxMessageLength is the platform limit for a single chat message.
const MaxMessageLength = 200

// ChatMessage is one inbound live chat item.
type ChatMessage struct {
	ID     string
	Author string
	Text   string
}

// QuotaRecorder charges metered usage units.
type QuotaRecorder interface {
	Record(ctx context.Context, units int)
}

// Client issues the bot's YouTube calls through an authenticated service.
type Client struct {
	svc   *yt.Service
	quota QuotaRecorder
}

// NewClient wraps svc; quota may be nil (no charging, used in tests).
func NewClient(svc *yt.Service, quota QuotaRecorder) *Client {
	return &Client{svc: svc, quota: quota}
}

func (c *Client) charge(ctx context.Context, units int) {
	if c.quota != nil {
		c.quota.Record(ctx, units)
	}
}

// ResolveLiveChatID looks up videoID and returns its active live chat id
// and title. Distinct errors separate "no such video", "not a live
// broadcast", and "chat unavailable" so startup logs are actionable.
func (c *Client) ResolveLiveChatID(ctx context.Context, videoID string) (chatID, title string, err error) {
	c.charge(ctx, CostVideosList)
	resp, err := c.svc.Videos.List([]string{"liveStreamingDetails", "snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", "", fmt.Errorf("no video found with id %s", videoID)
	}
	v := resp.Items[0]
	if v.Snippet != nil {
		title = v.Snippet.Title
	}
	if v.LiveStreamingDetails == nil {
		return "", title, fmt.Errorf("video %s is not a live broadcast", videoID)
	}
	if v.LiveStreamingDetails.ActiveLiveChatId == "" {
		return "", title, fmt.Errorf("live chat unavailable for video %s", videoID)
	}
	return v.LiveStreamingDetails.ActiveLiveChatId, title, nil
}

// ListMessages fetches one page of chat messages. The returned token must
// be threaded into the next call to keep chronological continuity; an empty
// token means the next call starts without pagination.
func (c *Client) ListMessages(ctx context.Context, chatID, pageToken string) ([]ChatMessage, string, error) {
	c.charge(ctx, CostMessagesList)
	call := c.svc.LiveChatMessages.List(chatID, []string{"snippet", "authorDetails"})
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("liveChatMessages.list: %w", err)
	}
	msgs := make([]ChatMessage, 0, len(resp.Items))
	for _, item := range resp.Items {
		m := ChatMessage{ID: item.Id}
		if item.AuthorDetails != nil {
			m.Author = item.AuthorDetails.DisplayName
		}
		if item.Snippet != nil {
			m.Text = item.Snippet.DisplayMessage
		}
		msgs = append(msgs, m)
	}
	return msgs, resp.NextPageToken, nil
}

// InsertMessage posts text into the chat, truncated to the platform limit,
// and returns the published message id.
func (c *Client) InsertMessage(ctx context.Context, chatID, text string) (string, error) {
	c.charge(ctx, CostMessagesInsert)
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: chatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: Truncate(text, MaxMessageLength),
			},
		},
	}
	resp, err := c.svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("liveChatMessages.insert: %w", err)
	}
	return resp.Id, nil
}

// Truncate caps s at limit runes, replacing the tail with "..." when cut.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// IsQuotaExceeded reports whether err is a YouTube quota/rate limit error,
// so the loop can log it distinctly and degrade instead of crashing.
func IsQuotaExceeded(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code != 403 && gerr.Code != 429 {
		return false
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(gerr.Message), "quota")
}
