// Package app wires roster loading, the countdown, rendering and delivery.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/engine"
	"github.com/tartampluch/go-lunar-birthday/internal/notify"
	"github.com/tartampluch/go-lunar-birthday/internal/report"
	"github.com/tartampluch/go-lunar-birthday/internal/roster"
	"github.com/tartampluch/go-lunar-birthday/internal/server"
)

// RosterLoader reads the people to count down for.
type RosterLoader interface {
	Load(ctx context.Context, src roster.Sources) ([]engine.Person, []engine.EntryError)
}

// App runs one pipeline: roster + today -> countdown -> message -> dispatch.
type App struct {
	settings   config.Settings
	log        *zap.Logger
	loader     RosterLoader
	calc       *engine.Calculator
	formatter  *report.Formatter
	dispatcher notify.Dispatcher
}

// Option customizes an App, mostly for tests.
type Option func(*App)

// WithClock replaces the wall clock.
func WithClock(c engine.Clock) Option { return func(a *App) { a.calc.Clock = c } }

// WithDispatcher replaces the channel chosen by the settings.
func WithDispatcher(d notify.Dispatcher) Option { return func(a *App) { a.dispatcher = d } }

// WithLoader replaces the roster loader.
func WithLoader(l RosterLoader) Option { return func(a *App) { a.loader = l } }

// New builds the pipeline from validated settings.
func New(s config.Settings, log *zap.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	formatter, err := report.NewFormatter(s.Language, log)
	if err != nil {
		return nil, err
	}
	dispatcher, err := notify.New(s, log)
	if err != nil {
		return nil, err
	}

	calc := engine.NewCalculator(s.Location(), log)
	calc.FormatLunar = formatter.LunarDate
	calc.FormatSummary = formatter.EventSummary

	a := &App{
		settings:   s,
		log:        log.With(zap.String(config.LogKeyComponent, config.CompApp)),
		loader:     roster.NewLoader(log),
		calc:       calc,
		formatter:  formatter,
		dispatcher: dispatcher,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *App) sources() roster.Sources {
	src := roster.Sources{
		Inline:    a.settings.Births,
		File:      a.settings.BirthsFile,
		VCardPath: a.settings.VCardPath,
		VCardURL:  a.settings.VCardURL,
		VCardUser: a.settings.VCardUser,
		VCardPass: a.settings.ResolveVCardPass(),
	}
	if src.VCardURL != "" && src.VCardUser != "" && src.VCardPass == "" {
		a.log.Warn(config.MsgPassFail, zap.String(config.LogKeyUser, src.VCardUser))
	}
	return src
}

// compose loads the roster, computes the countdown and renders the message.
func (a *App) compose(ctx context.Context) ([]engine.Person, engine.Report, notify.Payload, error) {
	people, failures := a.loader.Load(ctx, a.sources())

	rep, err := a.calc.Calculate(ctx, people)
	if err != nil {
		return nil, engine.Report{}, notify.Payload{}, err
	}
	rep.Failures = append(failures, rep.Failures...)

	return people, rep, notify.Payload{Title: a.formatter.Title(), Body: a.formatter.Render(rep)}, nil
}

// Run performs one scheduled run. Roster problems and delivery failures are
// logged and do not fail the run; a missing token skips delivery.
func (a *App) Run(ctx context.Context) error {
	start := time.Now()
	_, rep, payload, err := a.compose(ctx)
	if err != nil {
		return err
	}

	token := a.settings.ResolveToken()
	if token == "" {
		a.log.Info(config.MsgNotifySkip, zap.Int(config.LogKeyCount, len(rep.Results)))
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, a.settings.NotifyWait())
	defer cancel()
	if err := a.dispatcher.Send(sendCtx, payload, token); err != nil {
		a.log.Error(config.MsgNotifyFailed, zap.String(config.LogKeyChannel, a.settings.NotifyChannel), zap.Error(err))
		return nil
	}

	a.log.Info(config.MsgNotifyDone,
		zap.Int(config.LogKeyCount, len(rep.Results)),
		zap.Int(config.LogKeyFailed, len(rep.Failures)),
		zap.Int64(config.LogKeyDuration, time.Since(start).Milliseconds()))
	return nil
}

// Preview writes the message to w instead of sending it.
func (a *App) Preview(ctx context.Context, w io.Writer) error {
	_, _, payload, err := a.compose(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n\n%s", payload.Title, payload.Body)
	return err
}

// Serve publishes the feed and the latest report, refreshing both every
// RefreshInterval until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := server.NewFeedServer(a.settings.ServerBind, a.settings.ServerPort, a.log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.refreshLoop(ctx, srv)
	}()

	err := srv.Start(ctx)
	cancel()
	wg.Wait()
	return err
}

func (a *App) refreshLoop(ctx context.Context, srv *server.FeedServer) {
	log := a.log.With(zap.String(config.LogKeyComponent, config.CompWorker))

	interval := a.settings.RefreshInterval
	if interval <= 0 {
		interval = config.DefaultICalRefresh
	}

	a.refresh(ctx, srv)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info(config.MsgWorkerStart, zap.Duration(config.LogKeyInterval, interval))

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return
		case <-ticker.C:
			a.refresh(ctx, srv)
		}
	}
}

// refresh keeps the previous documents when a cycle fails.
func (a *App) refresh(ctx context.Context, srv *server.FeedServer) {
	people, rep, payload, err := a.compose(ctx)
	if err != nil {
		a.log.Error(config.MsgRefreshFailed, zap.Error(err))
		return
	}
	ics, err := a.calc.Calendar(ctx, rep.TodaySolar, people, a.settings.ReminderTrigger)
	if err != nil {
		a.log.Error(config.MsgRefreshFailed, zap.Error(err))
		return
	}
	srv.UpdateCalendar(ics)
	srv.UpdateReport(fmt.Sprintf("%s\n\n%s", payload.Title, payload.Body))
}
