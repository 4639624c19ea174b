// Package roster turns configuration documents into the list of people whose
// lunar birthdays are counted down.
package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/engine"
	"github.com/tartampluch/go-lunar-birthday/internal/lunar"
)

var (
	// ErrMalformedRoster means a whole document could not be read as a list of entries.
	ErrMalformedRoster = errors.New(config.ErrRosterMalformed)
	// ErrMalformedBirth means a birth field is not YYYY-MM-DD.
	ErrMalformedBirth = errors.New(config.ErrBirthMalformed)
	// ErrMissingName means an entry has no name.
	ErrMissingName = errors.New(config.ErrNameMissing)
)

// Entry is one item of a roster document, written as JSON or YAML:
//
//	[{"name": "张三", "birth": "1990-01-15"}, {"name": "李四", "birth": "1985-04-12", "leap": true}]
type Entry struct {
	Name  string `json:"name" yaml:"name"`
	Birth string `json:"birth" yaml:"birth"`
	Leap  bool   `json:"leap" yaml:"leap"`
}

// Parse reads a roster document. Malformed entries are skipped and reported
// individually; a document that is not a list yields ErrMalformedRoster.
// An empty document is an empty roster.
func Parse(source string, data []byte) ([]engine.Person, []engine.EntryError, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, nil
	}
	// yaml.v3 rejects some valid JSON, e.g. surrogate-pair escapes.
	if data[0] == '[' && json.Valid(data) {
		return parseJSON(source, data)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedRoster, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil, nil
	}
	list := doc.Content[0]
	if list.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("%w: expected a list, line %d", ErrMalformedRoster, list.Line)
	}

	var (
		people   []engine.Person
		failures []engine.EntryError
	)
	for i, node := range list.Content {
		var e Entry
		if err := node.Decode(&e); err != nil {
			failures = append(failures, engine.EntryError{Source: source, Index: i, Err: fmt.Errorf("%w: %w", ErrMalformedRoster, err)})
			continue
		}
		p, err := e.Person()
		if err != nil {
			failures = append(failures, engine.EntryError{Source: source, Index: i, Name: e.Name, Err: err})
			continue
		}
		people = append(people, p)
	}
	return people, failures, nil
}

func parseJSON(source string, data []byte) ([]engine.Person, []engine.EntryError, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedRoster, err)
	}

	var (
		people   []engine.Person
		failures []engine.EntryError
	)
	for i, raw := range items {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			failures = append(failures, engine.EntryError{Source: source, Index: i, Err: fmt.Errorf("%w: %w", ErrMalformedRoster, err)})
			continue
		}
		p, err := e.Person()
		if err != nil {
			failures = append(failures, engine.EntryError{Source: source, Index: i, Name: e.Name, Err: err})
			continue
		}
		people = append(people, p)
	}
	return people, failures, nil
}

// Person validates the entry's shape. Calendar validity is left to the bridge.
func (e Entry) Person() (engine.Person, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return engine.Person{}, ErrMissingName
	}
	birth, err := ParseBirth(e.Birth)
	if err != nil {
		return engine.Person{}, err
	}
	if e.Leap {
		birth.Leap = true
	}
	return engine.Person{Name: name, Birth: birth}, nil
}

// ParseBirth parses "YYYY-MM-DD" or "YYYYMMDD". A leap month may be written
// with an L prefix: "2023-L02-10".
func ParseBirth(value string) (lunar.LunisolarDate, error) {
	value = strings.TrimSpace(value)

	var fields []string
	if !strings.Contains(value, config.BirthSeparator) && len(value) == 8 {
		fields = []string{value[:4], value[4:6], value[6:]}
	} else {
		fields = strings.Split(value, config.BirthSeparator)
	}
	if len(fields) != config.BirthFieldCount {
		return lunar.LunisolarDate{}, fmt.Errorf("%w: %q has %d fields", ErrMalformedBirth, value, len(fields))
	}

	monthField := strings.TrimSpace(fields[1])
	leap := false
	if rest, ok := strings.CutPrefix(strings.ToUpper(monthField), config.LeapMarker); ok {
		leap = true
		monthField = rest
	}

	year, errY := strconv.Atoi(strings.TrimSpace(fields[0]))
	month, errM := strconv.Atoi(monthField)
	day, errD := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err := errors.Join(errY, errM, errD); err != nil {
		return lunar.LunisolarDate{}, fmt.Errorf("%w: %q: %w", ErrMalformedBirth, value, err)
	}
	if year <= 0 || month <= 0 || day <= 0 {
		return lunar.LunisolarDate{}, fmt.Errorf("%w: %q", ErrMalformedBirth, value)
	}
	return lunar.LunisolarDate{Year: year, Month: month, Day: day, Leap: leap}, nil
}
