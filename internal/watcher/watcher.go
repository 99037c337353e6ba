/*
Package watcher runs one check of the announcement board: fetch, extract, compare
with the last snapshot, filter by keyword, notify and save the new snapshot.
*/
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shanehull/annwatch/internal/ai"
	"github.com/shanehull/annwatch/internal/diff"
	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/fetch"
	"github.com/shanehull/annwatch/internal/filter"
	"github.com/shanehull/annwatch/internal/logger"
	"github.com/shanehull/annwatch/internal/notify"
	"github.com/shanehull/annwatch/internal/publish"
	"github.com/shanehull/annwatch/internal/tracing"
	"github.com/shanehull/annwatch/internal/types"
)

type Extractor interface {
	Extract(page []byte) ([]types.Announcement, error)
}

type SnapshotStore interface {
	Load() []types.Announcement
	Save(current []types.Announcement) error
	Path() string
}

type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, data notify.NotificationData) error
}

type Summarizer interface {
	Summarize(ctx context.Context, matches []types.Match) (*ai.Digest, error)
}

type Publisher interface {
	Publish(ctx context.Context, events []publish.Event) error
}

type Options struct {
	SourceURL     string
	DebugPagePath string
	IdentityKey   types.IdentityKey
	DryRun        bool
}

// Deps are the collaborators of a run. Summarizer and Publisher are optional.
type Deps struct {
	Fetcher    fetch.Fetcher
	Extractor  Extractor
	Store      SnapshotStore
	Matcher    *filter.Matcher
	Notifier   Notifier
	Summarizer Summarizer
	Publisher  Publisher
	Out        io.Writer
}

// Result describes what a run saw and did.
type Result struct {
	RunID         string
	FirstRun      bool
	Current       []types.Announcement
	New           []types.Announcement
	Matches       []types.Match
	Notified      bool
	SnapshotSaved bool
}

type Watcher struct {
	opts Options
	deps Deps

	now    func() time.Time
	tracer trace.Tracer
	log    *logger.Logger
}

func New(opts Options, deps Deps) *Watcher {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	return &Watcher{
		opts:   opts,
		deps:   deps,
		now:    time.Now,
		tracer: tracing.Tracer(),
		log:    logger.For("watcher"),
	}
}

// Run performs one check. The returned error is non-nil only when the page could
// not be fetched or parsed; in that case the snapshot is left untouched.
func (w *Watcher) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := w.log.WithStr("run_id", res.RunID)

	ctx, span := w.tracer.Start(ctx, "watcher.run", trace.WithAttributes(
		attribute.String("run_id", res.RunID),
		attribute.String("source_url", w.opts.SourceURL),
		attribute.Bool("dry_run", w.opts.DryRun),
	))
	defer span.End()

	log.Info().Str("url", w.opts.SourceURL).Bool("dry_run", w.opts.DryRun).Msg("Checking announcements")

	// The snapshot is read while the page downloads.
	previousCh := make(chan []types.Announcement, 1)
	go func() {
		previousCh <- w.deps.Store.Load()
	}()

	current, err := w.fetchAndExtract(ctx, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	res.Current = current

	var previous []types.Announcement
	select {
	case previous = <-previousCh:
	case <-ctx.Done():
		return res, ctx.Err()
	}

	span.SetAttributes(
		attribute.Int("announcements.current", len(current)),
		attribute.Int("announcements.previous", len(previous)),
	)

	if len(previous) == 0 {
		res.FirstRun = true
		log.Info().Int("count", len(current)).Msg("First run, listing all announcements")
		notify.ReportFirstRun(w.deps.Out, current, w.deps.Store.Path())
	} else {
		w.handleNew(ctx, log, res, current, previous)
	}
	span.SetAttributes(
		attribute.Int("announcements.new", len(res.New)),
		attribute.Int("announcements.matched", len(res.Matches)),
	)

	if w.opts.DryRun {
		log.Info().Str("path", w.deps.Store.Path()).Msg("Dry run, snapshot not saved")
	} else if err := w.deps.Store.Save(current); err != nil {
		notify.NotifyAdmin("Critical: snapshot could not be written", fmt.Sprintf("Path: %s\nError: %v", w.deps.Store.Path(), err))
	} else {
		res.SnapshotSaved = true
	}

	log.Info().
		Bool("first_run", res.FirstRun).
		Int("new", len(res.New)).
		Int("matched", len(res.Matches)).
		Bool("notified", res.Notified).
		Msg("Check completed")
	return res, nil
}

func (w *Watcher) fetchAndExtract(ctx context.Context, log *logger.Logger) ([]types.Announcement, error) {
	fctx, span := w.tracer.Start(ctx, "watcher.fetch", trace.WithAttributes(attribute.String("strategy", w.deps.Fetcher.Name())))
	page, err := w.deps.Fetcher.Fetch(fctx, w.opts.SourceURL)
	span.End()
	if err != nil {
		log.Error().Err(err).Str("kind", string(errs.KindOf(err))).Msg("Failed to fetch page")

		var httpErr *fetch.HTTPError
		if errors.As(err, &httpErr) && len(httpErr.Body) > 0 {
			w.saveDebugPage(log, httpErr.Body)
		}
		notify.NotifyAdmin("Announcement check failed: page not reachable", fmt.Sprintf("URL: %s\nError: %v", w.opts.SourceURL, err))
		return nil, err
	}

	_, span = w.tracer.Start(ctx, "watcher.extract")
	current, err := w.deps.Extractor.Extract(page)
	span.End()
	if err != nil {
		log.Critical().Err(err).Msg("No announcements found, the page layout may have changed")
		w.saveDebugPage(log, page)
		notify.NotifyAdmin("Announcement check failed: no titles found", fmt.Sprintf("The page layout may have changed. Check %s.", w.opts.DebugPagePath))
		return nil, err
	}

	return current, nil
}

func (w *Watcher) handleNew(ctx context.Context, log *logger.Logger, res *Result, current, previous []types.Announcement) {
	res.New = diff.Diff(current, previous, w.opts.IdentityKey)
	if len(res.New) == 0 {
		log.Info().Msg("No new announcements")
		notify.ReportNoNew(w.deps.Out, 0, w.deps.Matcher.Keywords())
		return
	}
	log.Info().Int("count", len(res.New)).Msg("New announcements detected")

	res.Matches = w.deps.Matcher.Match(res.New)
	w.publish(ctx, log, res)

	if len(res.Matches) == 0 {
		log.Info().Strs("keywords", w.deps.Matcher.Keywords()).Msg("No new announcement matches the keywords")
		notify.ReportNoNew(w.deps.Out, len(res.New), w.deps.Matcher.Keywords())
		return
	}
	log.Info().Int("count", len(res.Matches)).Strs("keywords", w.deps.Matcher.Keywords()).Msg("Matching announcements found")

	digest := w.summarize(ctx, log, res.Matches)
	notify.ReportMatches(w.deps.Out, res.Matches, w.deps.Matcher.Keywords(), digest)

	if w.opts.DryRun || w.deps.Notifier == nil || !w.deps.Notifier.Enabled() {
		return
	}

	nctx, span := w.tracer.Start(ctx, "watcher.notify")
	defer span.End()

	err := w.deps.Notifier.Notify(nctx, notify.NotificationData{
		Matches:     res.Matches,
		Digest:      digest,
		GeneratedAt: w.now(),
		SourceURL:   w.opts.SourceURL,
	})
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Msg("Some notifications failed")
	}
	// Partial delivery still counts; failures were logged per channel.
	res.Notified = true
}

func (w *Watcher) summarize(ctx context.Context, log *logger.Logger, matches []types.Match) *ai.Digest {
	if w.deps.Summarizer == nil {
		return nil
	}
	digest, err := w.deps.Summarizer.Summarize(ctx, matches)
	if err != nil {
		log.Warn().Err(err).Msg("AI summary failed, continuing without it")
		return nil
	}
	return digest
}

func (w *Watcher) publish(ctx context.Context, log *logger.Logger, res *Result) {
	if w.deps.Publisher == nil || w.opts.DryRun {
		return
	}

	matched := make(map[string]bool, len(res.Matches))
	for _, m := range res.Matches {
		matched[w.opts.IdentityKey.Key(m.Announcement)] = true
	}

	now := w.now().UTC()
	events := make([]publish.Event, 0, len(res.New))
	for _, a := range res.New {
		events = append(events, publish.Event{
			RunID:      res.RunID,
			Source:     w.opts.SourceURL,
			DetectedAt: now,
			Item:       a,
			Matched:    matched[w.opts.IdentityKey.Key(a)],
		})
	}

	if err := w.deps.Publisher.Publish(ctx, events); err != nil {
		log.Warn().Err(err).Msg("Failed to publish new announcements")
		return
	}
	log.Debug().Int("count", len(events)).Msg("New announcements published")
}

func (w *Watcher) saveDebugPage(log *logger.Logger, content []byte) {
	path := w.opts.DebugPagePath
	if path == "" {
		return
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to save debug page")
			return
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to save debug page")
		return
	}
	log.Info().Str("path", path).Msg("Page source saved for debugging")
}
