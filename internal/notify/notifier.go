// Package notify delivers flip alerts to chat channels. Every registered
// sender receives each alert; an event filter lets operators mute
// lifecycle messages.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// Event types accepted by Notify.
const (
	EventFlip      = "flip"
	EventLifecycle = "lifecycle"
)

// Message is a rendered alert. Fields keep their order.
type Message struct {
	Title  string
	Fields []Field
}

// Field is one labelled line of a Message.
type Field struct {
	Name   string
	Value  string
	Inline bool
	Code   bool
}

// Text renders m as plain lines of "Name: Value".
func (m Message) Text() string {
	var b strings.Builder
	for i, f := range m.Fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	// Name returns a short identifier such as "discord".
	Name() string
}

// Notifier dispatches messages to one or more Senders.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to senders. Only event types
// listed in events are forwarded; an empty list allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyFlip sends the alert for one reported flip.
func (n *Notifier) NotifyFlip(ctx context.Context, f domain.Flip) error {
	return n.Notify(ctx, EventFlip, FlipMessage(f))
}

// Notify sends msg if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event string, msg Message) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, msg)
}

// dispatch sends to every sender; one failing sender does not stop the
// rest, and all failures are returned together.
func (n *Notifier) dispatch(ctx context.Context, msg Message) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", msg.Title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// FlipMessage renders a flip alert.
func FlipMessage(f domain.Flip) Message {
	return Message{
		Title: "Flip Found!",
		Fields: []Field{
			{Name: "Item", Value: f.DisplayName},
			{Name: "ID", Value: f.Identifier, Inline: true},
			{Name: "Cost", Value: Coins(f.CheapestPrice), Inline: true, Code: true},
			{Name: "Next Lowest", Value: Coins(f.SecondCheapestPrice), Inline: true, Code: true},
			{Name: "Profit", Value: Coins(f.Profit), Inline: true, Code: true},
			{Name: "Daily Volume", Value: fmt.Sprintf("%.2f", f.AverageDailyVolume), Code: true},
			{Name: "Auction", Value: "/viewauction " + f.ListingID, Code: true},
		},
	}
}

// Coins formats n with thousands separators, e.g. 1234567 -> "1,234,567".
func Coins(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
