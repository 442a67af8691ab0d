// Package bot implements the chat monitoring and quota-adaptive dispatch
// loop: poll live chat, filter and classify messages, exchange triggered
// questions with the assistant, and publish replies, throttling the cadence
// when the daily quota budget runs low.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/thiagocaliman/youtube-live-chat-openai/config"
	"github.com/thiagocaliman/youtube-live-chat-openai/dedup"
	"github.com/thiagocaliman/youtube-live-chat-openai/mention"
	"github.com/thiagocaliman/youtube-live-chat-openai/quota"
	"github.com/thiagocaliman/youtube-live-chat-openai/telemetry"
	"github.com/thiagocaliman/youtube-live-chat-openai/youtubeapi"
)

// waitGranularity is the coarse sleep used while waiting for the next poll
// slot, keeping shutdown latency low without spinning.
const waitGranularity = 500 * time.Millisecond

// ChatAPI is the YouTube surface the loop consumes.
type ChatAPI interface {
	ResolveLiveChatID(ctx context.Context, videoID string) (chatID, title string, err error)
	ListMessages(ctx context.Context, chatID, pageToken string) ([]youtubeapi.ChatMessage, string, error)
	InsertMessage(ctx context.Context, chatID, text string) (string, error)
}

// Responder answers a triggered question. The reply is always publishable;
// err marks exchanges that should count as errors.
type Responder interface {
	Ask(ctx context.Context, query string) (string, error)
}

// State of the dispatch loop.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Bot owns all mutable session state: quota tracker, dedup cache, page
// token, and counters. Single loop, no parallel pollers.
type Bot struct {
	cfg       *config.Config
	chat      ChatAPI
	responder Responder
	tracker   *quota.Tracker
	seen      *dedup.Cache
	detector  *mention.Detector
	stats     *Stats

	chatID           string
	pageToken        string
	lastBotMessageID string
	lastPoll         time.Time

	state atomic.Int32
}

// New wires a bot from its collaborators.
func New(cfg *config.Config, chat ChatAPI, responder Responder, tracker *quota.Tracker) *Bot {
	return &Bot{
		cfg:       cfg,
		chat:      chat,
		responder: responder,
		tracker:   tracker,
		seen:      dedup.New(cfg.DedupCapacity),
		detector:  &mention.Detector{BotName: cfg.BotName, BotChannelName: cfg.BotChannelName},
		stats:     &Stats{},
	}
}

// State returns the loop state.
func (b *Bot) State() State { return State(b.state.Load()) }

// StatusSnapshot is the /status payload.
type StatusSnapshot struct {
	State       string   `json:"state"`
	VideoID     string   `json:"video_id"`
	BotName     string   `json:"bot_name"`
	EconomyMode bool     `json:"economy_mode"`
	QuotaUsage  int      `json:"quota_usage"`
	QuotaBudget int      `json:"quota_budget"`
	Stats       Snapshot `json:"stats"`
}

// Status returns a point-in-time view for the HTTP surface.
func (b *Bot) Status() StatusSnapshot {
	return StatusSnapshot{
		State:       b.State().String(),
		VideoID:     b.cfg.VideoID,
		BotName:     b.cfg.BotName,
		EconomyMode: b.tracker.Economy(),
		QuotaUsage:  b.tracker.Usage(),
		QuotaBudget: b.tracker.Budget(),
		Stats:       b.stats.Snapshot(),
	}
}

// Run resolves the live chat and drives the dispatch loop until ctx is
// cancelled. The returned error is non-nil only for pre-loop failures
// (no live chat); everything inside the loop is absorbed.
func (b *Bot) Run(ctx context.Context) error {
	chatID, title, err := b.chat.ResolveLiveChatID(ctx, b.cfg.VideoID)
	if err != nil {
		return fmt.Errorf("resolve live chat: %w", err)
	}
	b.chatID = chatID
	slog.Info("live chat resolved", slog.String("video", b.cfg.VideoID), slog.String("title", title))

	b.stats.markStart()
	b.state.Store(int32(StatePolling))
	interval := b.currentInterval()
	slog.Info("chat monitoring started",
		slog.String("bot", b.cfg.BotName),
		slog.Duration("interval", interval),
		slog.Bool("economy", b.tracker.Economy()))
	slog.Info("the bot replies when mentioned by name or to messages starting with '!'")

	for {
		if err := b.waitForSlot(ctx); err != nil {
			break
		}
		b.lastPoll = time.Now()
		if err := b.safeCycle(ctx); err != nil {
			slog.Error("dispatch cycle aborted", slog.Any("err", err))
			break
		}
	}

	b.state.Store(int32(StateStopped))
	b.stats.markEnd()
	b.stats.logSummary(b.tracker.Usage())
	return nil
}

// waitForSlot sleeps in coarse steps until the adaptive interval has
// elapsed since the last poll, recomputing the interval so an economy-mode
// flip mid-wait takes effect on the next cycle.
func (b *Bot) waitForSlot(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(b.lastPoll) >= b.currentInterval() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitGranularity):
		}
	}
}

func (b *Bot) currentInterval() time.Duration {
	if b.tracker.Economy() {
		return b.cfg.EconomyInterval
	}
	return b.cfg.PollInterval
}

// safeCycle guards the loop body: a panic is logged and terminates the loop
// gracefully through the summary path instead of crashing the process.
func (b *Bot) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.stats.addError()
			err = fmt.Errorf("panic in dispatch cycle: %v", r)
		}
	}()
	b.cycle(ctx)
	return nil
}

// cycle runs one poll-and-dispatch pass. All domain errors are absorbed:
// failed polls yield an empty page, failed publishes yield no reply.
func (b *Bot) cycle(ctx context.Context) {
	corr := uuid.New().String()
	ctx = telemetry.WithCorrelation(ctx, corr)
	ctx, span := telemetry.StartSpan(ctx, "dispatch", "poll-cycle")
	defer span.End()
	telemetry.IncPollCycles()

	msgs := b.fetchPage(ctx)
	for _, m := range msgs {
		b.handleMessage(ctx, m)
	}

	telemetry.SetQuotaUsage(b.tracker.Usage())
	telemetry.SetEconomyMode(b.tracker.Economy())
}

// fetchPage lists one page of chat messages, threading the pagination
// token. Quota exhaustion is logged distinctly so an operator can react;
// either way a failed poll returns an empty page and the loop carries on.
func (b *Bot) fetchPage(ctx context.Context) []youtubeapi.ChatMessage {
	b.stats.addAPICall()
	telemetry.IncAPICalls()
	msgs, next, err := b.chat.ListMessages(ctx, b.chatID, b.pageToken)
	if err != nil {
		if youtubeapi.IsQuotaExceeded(err) {
			telemetry.LoggerWithCorr(ctx).Error("quota exceeded: YouTube API budget exhausted, wait for the daily reset or request an increase", slog.Any("err", err))
		} else {
			telemetry.LoggerWithCorr(ctx).Error("chat poll failed", slog.Any("err", err))
		}
		return nil
	}
	b.pageToken = next
	return msgs
}

// handleMessage runs one message through dedup, classification, the
// assistant exchange, and publication. Nothing here may kill the loop.
func (b *Bot) handleMessage(ctx context.Context, m youtubeapi.ChatMessage) {
	if b.seen.Seen(m.ID) {
		return
	}
	b.seen.Mark(m.ID)
	b.stats.addReceived()
	telemetry.IncMessagesReceived()

	res := b.detector.Classify(m.Author, m.Text)
	switch res.Kind {
	case mention.SelfEcho:
		b.lastBotMessageID = m.ID
		return
	case mention.ReplyToBot, mention.Ignored:
		if res.Kind == mention.Ignored {
			telemetry.LoggerWithCorr(ctx).Info("chat message", slog.String("author", m.Author), slog.String("text", m.Text))
		}
		return
	}

	telemetry.LoggerWithCorr(ctx).Info("forwarding question to assistant",
		slog.String("author", m.Author), slog.String("query", res.Query))
	started := time.Now()
	reply, err := b.responder.Ask(ctx, res.Query)
	telemetry.ObserveAssistantDuration(time.Since(started).Seconds())
	if err != nil {
		b.stats.addError()
		telemetry.IncErrors()
	}

	b.publishReply(ctx, m.Author, reply)
}

// publishReply addresses the reply to a shortened form of the author's
// name and posts it. Publish failures are absorbed and counted.
func (b *Bot) publishReply(ctx context.Context, author, reply string) {
	formatted := fmt.Sprintf("@%s %s", mention.ShortenName(author), reply)
	b.stats.addAPICall()
	telemetry.IncAPICalls()
	id, err := b.chat.InsertMessage(ctx, b.chatID, formatted)
	if err != nil {
		b.stats.addError()
		telemetry.IncErrors()
		if youtubeapi.IsQuotaExceeded(err) {
			telemetry.LoggerWithCorr(ctx).Error("quota exceeded: reply dropped", slog.Any("err", err))
		} else {
			telemetry.LoggerWithCorr(ctx).Error("reply publish failed", slog.Any("err", err))
		}
		return
	}
	b.lastBotMessageID = id
	b.stats.addResponded()
	telemetry.IncResponsesSent()
	telemetry.LoggerWithCorr(ctx).Info("reply sent", slog.String("message_id", id), slog.String("text", formatted))
}
