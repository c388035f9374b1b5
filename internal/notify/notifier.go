package notify

import (
	"context"
	"fmt"
	"strings"

	"jobwatch/internal/domain"
	"jobwatch/internal/logger"
)

// Message is what gets delivered for one new listing.
type Message struct {
	Title      string
	Company    string
	Link       string
	PostedText string
}

func MessageFromRecord(r domain.RawRecord) Message {
	return Message{
		Title:      strings.TrimSpace(r.Title),
		Company:    strings.TrimSpace(r.Company),
		Link:       strings.TrimSpace(r.Link),
		PostedText: strings.TrimSpace(r.PostedText),
	}
}

// Notifier delivers a message. Implementations return *Error on failure.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// FormatMessage renders the chat text, substituting placeholders for missing fields.
func FormatMessage(m Message) string {
	return fmt.Sprintf("New job posted:\n%s @ %s\n%s\nPosted: %s",
		orDefault(m.Title, "(unknown title)"),
		orDefault(m.Company, "(unknown company)"),
		orDefault(m.Link, "(no link)"),
		orDefault(m.PostedText, "(unknown time)"),
	)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// LogNotifier only logs. Used for dry runs.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) Notify(_ context.Context, msg Message) error {
	n.Log.Info("dry-run notification", "title", msg.Title, "company", msg.Company, "link", msg.Link)
	return nil
}
