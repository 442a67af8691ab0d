// Package assistant drives a request/response exchange with an OpenAI
// Assistant: one thread per question, a run polled to a terminal state, and
// the newest assistant message as the reply. Service-side failures are
// converted to fixed apology strings so the dispatch loop never sees them
// as fatal.
package assistant

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultPollInterval is the run-status polling cadence.
	DefaultPollInterval = time.Second
	// DefaultMaxWait bounds the total wait on a single run so a stuck run
	// cannot stall the whole dispatch loop.
	DefaultMaxWait = 2 * time.Minute
	// DefaultMaxReplyLength matches the chat platform message limit.
	DefaultMaxReplyLength = 200
)

// Fixed user-facing replies for the failure paths.
const (
	ReplyRunFailed  = "Sorry, I ran into a problem while processing your question."
	ReplyRunExpired = "Sorry, the response timed out. Please try again."
	ReplyError      = "Sorry, something went wrong while processing your question."
	ReplyNoAnswer   = "I could not come up with an answer to your question."
)

// Client wraps the OpenAI API for a single configured assistant.
type Client struct {
	api         *openai.Client
	assistantID string

	// PollInterval and MaxWait tune the run-status wait; zero values fall
	// back to the defaults.
	PollInterval   time.Duration
	MaxWait        time.Duration
	MaxReplyLength int
}

// New builds a client for assistantID.
func New(api *openai.Client, assistantID string) *Client {
	return &Client{
		api:            api,
		assistantID:    assistantID,
		PollInterval:   DefaultPollInterval,
		MaxWait:        DefaultMaxWait,
		MaxReplyLength: DefaultMaxReplyLength,
	}
}

// Verify retrieves the configured assistant, returning its name. Used as a
// startup preflight so a bad assistant id fails before the loop starts.
func (c *Client) Verify(ctx context.Context) (string, error) {
	a, err := c.api.RetrieveAssistant(ctx, c.assistantID)
	if err != nil {
		return "", err
	}
	if a.Name != nil {
		return *a.Name, nil
	}
	return c.assistantID, nil
}

// Ask submits query as a user turn on a fresh thread, runs the assistant,
// and waits for a terminal state. The returned reply is always safe to
// publish. err is non-nil only when the exchange should count as an error;
// an expired run returns its apology with a nil error.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		slog.Error("assistant thread create failed", slog.Any("err", err))
		return ReplyError, err
	}

	_, err = c.api.CreateMessage(ctx, thread.ID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})
	if err != nil {
		slog.Error("assistant message create failed", slog.Any("err", err))
		return ReplyError, err
	}

	run, err := c.api.CreateRun(ctx, thread.ID, openai.RunRequest{AssistantID: c.assistantID})
	if err != nil {
		slog.Error("assistant run create failed", slog.Any("err", err))
		return ReplyError, err
	}

	reply, err := c.waitForRun(ctx, thread.ID, run.ID)
	if err != nil {
		return reply, err
	}
	if reply != "" {
		return reply, nil
	}
	return c.collectReply(ctx, thread.ID)
}

// waitForRun polls run status until a terminal state, the wait budget, or
// context cancellation. A non-empty reply means a terminal apology; the
// empty reply with nil error means the run completed.
func (c *Client) waitForRun(ctx context.Context, threadID, runID string) (string, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxWait := c.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	deadline := time.Now().Add(maxWait)

	for {
		run, err := c.api.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			slog.Error("assistant run poll failed", slog.Any("err", err))
			return ReplyError, err
		}
		switch run.Status {
		case openai.RunStatusQueued, openai.RunStatusInProgress:
			// keep polling
		case openai.RunStatusCompleted:
			return "", nil
		case openai.RunStatusExpired:
			slog.Warn("assistant run expired", slog.String("run", runID))
			return ReplyRunExpired, nil
		case openai.RunStatusFailed:
			if run.LastError != nil {
				slog.Error("assistant run failed",
					slog.String("code", string(run.LastError.Code)),
					slog.String("message", run.LastError.Message))
			} else {
				slog.Error("assistant run failed", slog.String("run", runID))
			}
			return ReplyRunFailed, errRunFailed
		default:
			slog.Error("assistant run ended in unexpected state",
				slog.String("run", runID), slog.String("status", string(run.Status)))
			return ReplyRunFailed, errRunFailed
		}

		if time.Now().After(deadline) {
			slog.Warn("assistant run wait budget exhausted",
				slog.String("run", runID), slog.Duration("max_wait", maxWait))
			return ReplyRunExpired, nil
		}
		select {
		case <-ctx.Done():
			return ReplyError, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// collectReply fetches the newest assistant turn's text content.
func (c *Client) collectReply(ctx context.Context, threadID string) (string, error) {
	msgs, err := c.api.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		slog.Error("assistant message list failed", slog.Any("err", err))
		return ReplyError, err
	}
	// Messages come back newest first.
	for _, m := range msgs.Messages {
		if m.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		var text string
		for _, part := range m.Content {
			if part.Type == "text" && part.Text != nil {
				text += part.Text.Value
			}
		}
		if text == "" {
			continue
		}
		return c.truncate(text), nil
	}
	return ReplyNoAnswer, nil
}

// truncate caps the reply at MaxReplyLength runes, reserving three for the
// ellipsis marker.
func (c *Client) truncate(s string) string {
	limit := c.MaxReplyLength
	if limit <= 0 {
		limit = DefaultMaxReplyLength
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

type runFailedError struct{}

func (runFailedError) Error() string { return "assistant run failed" }

var errRunFailed = runFailedError{}
