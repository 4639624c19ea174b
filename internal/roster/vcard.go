package roster

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-vcard"
	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/engine"
)

// DecodeVCards reads people from a vCard stream. A card contributes a person
// when it carries X-LUNAR-BDAY, or a BDAY tagged CALSCALE=chinese. Plain
// Gregorian BDAY values are ignored. X-LUNAR-LEAP:TRUE marks a leap month.
func DecodeVCards(source string, r io.Reader, log *zap.Logger) ([]engine.Person, []engine.EntryError) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String(config.LogKeyComponent, config.CompRoster), zap.String(config.LogKeySource, source))

	var (
		people   []engine.Person
		failures []engine.EntryError
	)
	dec := vcard.NewDecoder(r)
	for i := 0; ; i++ {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The decoder cannot resync after a syntax error.
			log.Warn(config.MsgSkippedCard, zap.Int(config.LogKeyIndex, i), zap.Error(err))
			failures = append(failures, engine.EntryError{Source: source, Index: i, Err: fmt.Errorf("%s: %w", config.ErrVCardParse, err)})
			break
		}

		raw, ok := lunarBirthday(card)
		if !ok {
			log.Debug(config.MsgSkippedDate, zap.Int(config.LogKeyIndex, i))
			continue
		}

		e := Entry{Name: cardName(card), Birth: raw, Leap: isTrue(card.Value(config.VCardLunarLeap))}
		p, err := e.Person()
		if err != nil {
			failures = append(failures, engine.EntryError{Source: source, Index: i, Name: e.Name, Err: err})
			continue
		}
		people = append(people, p)
	}
	return people, failures
}

func lunarBirthday(card vcard.Card) (string, bool) {
	if v := strings.TrimSpace(card.Value(config.VCardLunarBDAY)); v != "" {
		return v, true
	}
	f := card.Get(config.VCardBDAY)
	if f == nil || !strings.EqualFold(f.Params.Get(config.VCardParamScale), config.VCardScaleLunar) {
		return "", false
	}
	return strings.TrimSpace(f.Value), true
}

// cardName prefers FN, then the structured N, then a placeholder.
func cardName(card vcard.Card) string {
	if fn := strings.TrimSpace(card.PreferredValue(config.VCardFN)); fn != "" {
		return fn
	}
	if n := card.Name(); n != nil {
		full := strings.TrimSpace(n.FamilyName + n.GivenName)
		if full != "" {
			return full
		}
	}
	return config.FallbackName
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
