package roster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/engine"
)

// Source names used in logs and EntryError.Source.
const (
	SourceInline    = "BIRTHS"
	SourceFile      = "BIRTHS_FILE"
	SourceVCardPath = "VCARD_PATH"
	SourceVCardURL  = "VCARD_URL"
)

// Sources lists where people come from. Empty fields are ignored; the
// results of all configured sources are concatenated in field order.
type Sources struct {
	Inline    string
	File      string
	VCardPath string
	VCardURL  string
	VCardUser string
	VCardPass string
}

// Loader reads every configured source.
type Loader struct {
	Log     *zap.Logger
	Fetcher VCardFetcher
}

// NewLoader returns a Loader with an HTTP fetcher.
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{Log: log, Fetcher: NewHTTPFetcher(log)}
}

// Load never fails as a whole. A source that cannot be read at all is
// reported as an EntryError with Index -1 and contributes nobody.
func (l *Loader) Load(ctx context.Context, src Sources) ([]engine.Person, []engine.EntryError) {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String(config.LogKeyComponent, config.CompRoster))

	var (
		people   []engine.Person
		failures []engine.EntryError
	)
	collect := func(source string, p []engine.Person, f []engine.EntryError, err error) {
		if err != nil {
			log.Warn(config.MsgRosterSource, zap.String(config.LogKeySource, source), zap.Error(err))
			failures = append(failures, engine.EntryError{Source: source, Index: -1, Err: err})
			return
		}
		for _, e := range f {
			log.Warn(config.MsgRosterSkip,
				zap.String(config.LogKeySource, source),
				zap.Int(config.LogKeyIndex, e.Index),
				zap.String(config.LogKeyName, e.Name),
				zap.Error(e.Err))
		}
		people = append(people, p...)
		failures = append(failures, f...)
	}

	if src.Inline != "" {
		p, f, err := Parse(SourceInline, []byte(src.Inline))
		collect(SourceInline, p, f, err)
	}
	if src.File != "" {
		p, f, err := l.parseFile(src.File)
		collect(SourceFile, p, f, err)
	}
	if src.VCardPath != "" {
		p, f, err := l.readVCardFile(src.VCardPath)
		collect(SourceVCardPath, p, f, err)
	}
	if src.VCardURL != "" {
		p, f, err := l.fetchVCards(ctx, src)
		collect(SourceVCardURL, p, f, err)
	}

	log.Info(config.MsgRosterLoaded,
		zap.Int(config.LogKeyCount, len(people)),
		zap.Int(config.LogKeyFailed, len(failures)))
	return people, failures
}

func (l *Loader) parseFile(path string) ([]engine.Person, []engine.EntryError, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, nil, err
	}
	return Parse(SourceFile, data)
}

func (l *Loader) readVCardFile(path string) ([]engine.Person, []engine.EntryError, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, nil, err
	}
	p, f := DecodeVCards(SourceVCardPath, bytes.NewReader(data), l.Log)
	return p, f, nil
}

func (l *Loader) fetchVCards(ctx context.Context, src Sources) ([]engine.Person, []engine.EntryError, error) {
	if l.Fetcher == nil {
		return nil, nil, errors.New(config.ErrFetcherMissing)
	}
	data, err := l.Fetcher.Fetch(ctx, src.VCardURL, Credentials{User: src.VCardUser, Pass: src.VCardPass})
	if err != nil {
		return nil, nil, err
	}
	p, f := DecodeVCards(SourceVCardURL, bytes.NewReader(data), l.Log)
	return p, f, nil
}

func readLimited(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRosterRead, err)
	}
	defer func() { _ = fh.Close() }()

	data, err := io.ReadAll(io.LimitReader(fh, config.MaxRosterFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRosterRead, err)
	}
	if len(data) > config.MaxRosterFileSize {
		return nil, fmt.Errorf("%s: %s exceeds %d bytes", config.ErrRosterRead, path, config.MaxRosterFileSize)
	}
	return data, nil
}
