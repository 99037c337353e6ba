/*
Package notify reports run results on the console and delivers keyword matches
through email and Telegram.
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shanehull/annwatch/internal/ai"
	"github.com/shanehull/annwatch/internal/config"
	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/logger"
	"github.com/shanehull/annwatch/internal/types"
)

// NotificationData is everything a renderer needs for one run's alert.
type NotificationData struct {
	Subject     string
	Matches     []types.Match
	Digest      *ai.Digest
	GeneratedAt time.Time
	SourceURL   string
}

// RenderedMessage is a notification rendered once for all channels. Chat is the
// short Telegram HTML variant.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
	Chat    string
}

type Sender interface {
	Name() string
	Send(ctx context.Context, msg *RenderedMessage) error
}

// Dispatcher renders a notification and hands it to every sender.
type Dispatcher struct {
	renderer *HTMLEmailRenderer
	senders  []Sender
	log      *logger.Logger
}

func NewDispatcher(senders ...Sender) *Dispatcher {
	return &Dispatcher{
		renderer: NewHTMLEmailRenderer(),
		senders:  senders,
		log:      logger.For("notify"),
	}
}

// Enabled reports whether any channel is configured.
func (d *Dispatcher) Enabled() bool {
	return len(d.senders) > 0
}

// Notify sends data through all senders concurrently. Failures are logged and
// joined into the returned error; one failing channel does not stop the others.
func (d *Dispatcher) Notify(ctx context.Context, data NotificationData) error {
	if !d.Enabled() || len(data.Matches) == 0 {
		return nil
	}

	msg, err := d.renderer.Render(data)
	if err != nil {
		d.log.Error().Err(err).Msg("Failed to render notification")
		return errs.Notify("render", "failed to render notification", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)

	for _, s := range d.senders {
		wg.Add(1)
		go func(s Sender) {
			defer wg.Done()

			if err := s.Send(ctx, msg); err != nil {
				d.log.Error().Err(err).Str("channel", s.Name()).Str("subject", msg.Subject).Msg("Notification failed")
				mu.Lock()
				failures = append(failures, errs.Notify(s.Name(), "send failed", err))
				mu.Unlock()
				return
			}
			d.log.Info().Str("channel", s.Name()).Str("subject", msg.Subject).Msg("Notification sent")
		}(s)
	}
	wg.Wait()

	return errors.Join(failures...)
}

// SendersFromConfig builds the enabled channels. A channel that cannot be set up
// is skipped and reported in the returned error.
func SendersFromConfig(cfg *config.Config) ([]Sender, error) {
	var senders []Sender
	var setupErrs []error

	if cfg.Email.Enabled {
		senders = append(senders, NewEmailSender(cfg.Email))
	}

	if cfg.Telegram.Enabled() {
		tg, err := NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			setupErrs = append(setupErrs, errs.Notify("telegram", "failed to init telegram bot", err))
		} else {
			senders = append(senders, tg)
		}
	}

	return senders, errors.Join(setupErrs...)
}

// NotifyAdmin flags a failure that needs an operator. It only logs; the log file
// is what operators watch.
func NotifyAdmin(subject, detail string) {
	log := logger.For("admin")
	log.Critical().Str("subject", subject).Msg("ADMIN NOTIFICATION REQUIRED")
	log.Critical().Str("subject", subject).Msg(detail)
}

func ReportFirstRun(w io.Writer, items []types.Announcement, snapshotPath string) {
	fmt.Fprintln(w, "\n===========================================")
	fmt.Fprintf(w, "FIRST RUN: %d ANNOUNCEMENTS\n", len(items))
	fmt.Fprintln(w, "===========================================")

	for _, it := range items {
		fmt.Fprintf(w, "- %s\n", it.Title)
	}

	fmt.Fprintln(w, "-------------------------------------------")
	fmt.Fprintf(w, "Later runs report only announcements missing from %s.\n", snapshotPath)
}

func ReportNoNew(w io.Writer, newCount int, keywords []string) {
	fmt.Fprintln(w, "\n-------------------------------------------")
	if newCount == 0 {
		fmt.Fprintln(w, "No new announcements.")
	} else {
		fmt.Fprintf(w, "%d new announcement(s), none matching %s.\n", newCount, quoteList(keywords))
	}
	fmt.Fprintln(w, "-------------------------------------------")
}

func ReportMatches(w io.Writer, matches []types.Match, keywords []string, digest *ai.Digest) {
	if len(matches) == 0 {
		ReportNoNew(w, 0, keywords)
		return
	}

	fmt.Fprintln(w, "\n===========================================")
	fmt.Fprintf(w, "✅ %d NEW ANNOUNCEMENT(S) MATCHING %s\n", len(matches), quoteList(keywords))
	fmt.Fprintln(w, "===========================================")

	for i, m := range matches {
		fmt.Fprintf(w, "\n--- MATCH #%d ---\n", i+1)
		fmt.Fprintf(w, "Title:    %s\n", m.Title)
		if m.Link != "" {
			fmt.Fprintf(w, "URL:      %s\n", m.Link)
		}
		if len(m.KeywordsFound) > 0 {
			fmt.Fprintf(w, "Keywords: %s\n", strings.Join(m.KeywordsFound, ", "))
		}
	}

	if digest != nil && len(digest.Summary) > 0 {
		fmt.Fprintf(w, "\nAI Summary:\n%s", formatBulletList(digest.Summary))
	}

	fmt.Fprintln(w, "\n===========================================")
}

func formatBulletList(points []string) string {
	var sb strings.Builder
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("\t- %s\n", p))
	}
	return sb.String()
}

func quoteList(items []string) string {
	if len(items) == 0 {
		return "any keyword"
	}
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return strings.Join(quoted, ", ")
}
