// Package server publishes the birthday feed and the latest report over HTTP.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
)

// cacheItem is one rendered document with its HTTP validators.
type cacheItem struct {
	data    []byte
	etag    string
	modTime time.Time
}

// document is a read-mostly resource swapped atomically on refresh.
type document struct {
	name  string
	mime  string
	cache atomic.Pointer[cacheItem]
}

// FeedServer serves the iCalendar feed on "/", the latest report on
// "/report" and a liveness check on "/healthz".
type FeedServer struct {
	Port string
	Bind string
	Log  *zap.Logger

	calendar document
	report   document
}

// NewFeedServer creates a server bound to bind:port. An empty bind means localhost.
func NewFeedServer(bind, port string, log *zap.Logger) *FeedServer {
	if bind == "" {
		bind = config.LocalhostBindAddr
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedServer{
		Port:     port,
		Bind:     bind,
		Log:      log.With(zap.String(config.LogKeyComponent, config.CompServer)),
		calendar: document{name: config.RouteRoot, mime: config.MimeTextCalendar},
		report:   document{name: config.RouteReport, mime: config.MimeTextMarkdown},
	}
}

// Handler returns the routing table. Start serves it; tests can use it directly.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, func(w http.ResponseWriter, r *http.Request) { s.serve(&s.calendar, w, r) })
	mux.HandleFunc(config.RouteReport, func(w http.ResponseWriter, r *http.Request) { s.serve(&s.report, w, r) })
	mux.HandleFunc(config.RouteHealth, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// Start listens and blocks until ctx is cancelled, then shuts down gracefully.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	srv := &http.Server{
		Addr:         s.Bind + config.AddrSeparator + s.Port,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)
	go func() {
		s.Log.Info(config.MsgServerListen, zap.String(config.LogKeyPort, s.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.Log.Info(config.MsgServerStop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// UpdateCalendar atomically replaces the served feed.
func (s *FeedServer) UpdateCalendar(data []byte) { s.update(&s.calendar, data) }

// UpdateReport atomically replaces the served report.
func (s *FeedServer) UpdateReport(text string) { s.update(&s.report, []byte(text)) }

func (s *FeedServer) update(doc *document, data []byte) {
	hash := sha256.Sum256(data)
	item := &cacheItem{
		data:    data,
		etag:    fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		modTime: time.Now().UTC().Truncate(time.Second),
	}

	// Keep Last-Modified stable when nothing changed so conditional requests keep hitting.
	if prev := doc.cache.Load(); prev != nil && prev.etag == item.etag {
		return
	}
	doc.cache.Store(item)

	s.Log.Debug(config.MsgCacheUpdated,
		zap.String(config.LogKeySource, doc.name),
		zap.Int(config.LogKeySizeBytes, len(data)),
		zap.String(config.LogKeyETag, item.etag))
}

func (s *FeedServer) serve(doc *document, w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != doc.name {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := doc.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, doc.mime)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, item.etag)

	// ServeContent answers If-None-Match, If-Modified-Since, HEAD and Range.
	http.ServeContent(w, r, doc.name, item.modTime, bytes.NewReader(item.data))
}
