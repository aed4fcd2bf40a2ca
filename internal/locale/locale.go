// Package locale renders mission dates the way the field client displays them.
//
// The short date form is part of the report grouping key, so the locale is an
// explicit configuration value rather than process-wide state: two mission
// timestamps that render to the same short date under the active locale land
// in the same group.
package locale

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// InvalidDate is rendered for a missing or unparsable mission date
const InvalidDate = "Invalid Date"

// DefaultTag is the locale used by the survey teams
const DefaultTag = "fr-FR"

// supportedTags lists locales with a known short date layout.
// The first entry is the fallback for the matcher.
var supportedTags = []language.Tag{
	language.MustParse("fr-FR"),
	language.AmericanEnglish,
	language.BritishEnglish,
	language.MustParse("de-DE"),
	language.MustParse("es-ES"),
	language.MustParse("it-IT"),
	language.MustParse("nl-NL"),
	language.MustParse("ja-JP"),
	language.MustParse("sv-SE"),
}

// shortDateLayouts is indexed like supportedTags
var shortDateLayouts = []string{
	"02/01/2006",
	"1/2/2006",
	"02/01/2006",
	"2.1.2006",
	"2/1/2006",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
	"2006-01-02",
}

var matcher = language.NewMatcher(supportedTags)

// Formatter renders short dates for one locale and time zone
type Formatter struct {
	tag      language.Tag
	layout   string
	location *time.Location
}

// NewFormatter creates a formatter for a BCP 47 tag and an IANA time zone.
// An empty tag selects DefaultTag and an empty zone selects UTC.
func NewFormatter(tag, timezone string) (*Formatter, error) {
	if tag == "" {
		tag = DefaultTag
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", tag, err)
	}

	_, index, confidence := matcher.Match(parsed)
	if confidence == language.No {
		return nil, fmt.Errorf("unsupported locale %q", tag)
	}

	location := time.UTC
	if timezone != "" {
		location, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone %q: %w", timezone, err)
		}
	}

	return &Formatter{
		tag:      supportedTags[index],
		layout:   shortDateLayouts[index],
		location: location,
	}, nil
}

// MustFormatter is like NewFormatter but panics on error
func MustFormatter(tag, timezone string) *Formatter {
	f, err := NewFormatter(tag, timezone)
	if err != nil {
		panic(err)
	}
	return f
}

// ShortDate renders t in the locale's short date form
func (f *Formatter) ShortDate(t time.Time) string {
	if t.IsZero() {
		return InvalidDate
	}
	return t.In(f.location).Format(f.layout)
}

// Tag returns the matched locale tag
func (f *Formatter) Tag() string {
	return f.tag.String()
}

// Location returns the time zone dates are rendered in
func (f *Formatter) Location() *time.Location {
	return f.location
}
