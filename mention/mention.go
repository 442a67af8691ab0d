// Package mention decides whether an inbound chat message is addressed to
// the bot and extracts the query text to forward to the assistant.
package mention

import "strings"

// Kind classifies an inbound message.
type Kind int

const (
	// Ignored messages are counted as received but never answered.
	Ignored Kind = iota
	// SelfEcho is the bot's own message coming back through the poll.
	SelfEcho
	// ReplyToBot is a message starting with "@"; suppressed to avoid reply loops.
	ReplyToBot
	// Trigger is a message that must be forwarded to the assistant.
	Trigger
)

// Result carries the classification and, for triggers, the query text.
type Result struct {
	Kind  Kind
	Query string
}

// Detector classifies messages for a single bot identity.
type Detector struct {
	// BotName is the display name whose mention (case-insensitive substring)
	// triggers a response.
	BotName string
	// BotChannelName identifies the bot's own author name for self-echo
	// filtering.
	BotChannelName string
}

// Classify applies the trigger rules in order: self-echo, reply suppression,
// command prefix / name mention, ignored. Command queries ("!...") have the
// prefix stripped and whitespace trimmed; mention queries keep the full text.
func (d *Detector) Classify(author, text string) Result {
	if author == d.BotChannelName && d.BotChannelName != "" {
		return Result{Kind: SelfEcho}
	}
	if strings.HasPrefix(text, "@") {
		return Result{Kind: ReplyToBot}
	}
	if strings.HasPrefix(text, "!") {
		return Result{Kind: Trigger, Query: strings.TrimSpace(strings.TrimPrefix(text, "!"))}
	}
	if d.BotName != "" && strings.Contains(strings.ToLower(text), strings.ToLower(d.BotName)) {
		return Result{Kind: Trigger, Query: text}
	}
	return Result{Kind: Ignored}
}

// ShortenName reduces a display name to something usable in an "@name" reply:
// the segment before a "|" separator if present, the first two words for
// long multi-word names, otherwise the name unchanged.
func ShortenName(name string) string {
	if i := strings.Index(name, "|"); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	if len(name) > 20 {
		if parts := strings.Fields(name); len(parts) > 1 {
			return strings.Join(parts[:2], " ")
		}
	}
	return name
}
