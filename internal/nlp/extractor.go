// Package nlp extracts temporal and person entities from free-form text.
// Extraction is purely lexical: an ordered list of independent pattern
// matchers runs over the input, and a separate dominance fold picks the
// single representative entity per kind used downstream.
package nlp

import (
	"regexp"
	"strings"

	"nixin/internal/logging"
)

// Kind classifies an extracted entity span.
type Kind string

const (
	KindTime   Kind = "TIME"
	KindPerson Kind = "PERSON"
)

// EntitySpan is a substring of the input classified as a temporal or
// person reference. Spans are immutable once created; the entity list
// preserves discovery order.
type EntitySpan struct {
	Text string
	Kind Kind
}

// Extraction is the result of one pass over an input text.
// Time and Person hold the dominant entity per kind (empty if none).
type Extraction struct {
	Entities []EntitySpan
	Time     string
	Person   string
}

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

// timePatterns is ordered from most to least specific. The fold below
// prefers longer matches as dominant, so a full "17 feb 2026" beats the
// fallback "17 feb" even though both tiers match.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{1,2}\s+(?:` + monthNames + `)\s+\d{4}`), // 17 feb 2026
	regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(?:am|pm)`),                // 10:30 am
	regexp.MustCompile(`(?i)\d{1,2}\s+(?:am|pm)`),                      // 3 pm (without colon)
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),                      // 02/16/2026
	regexp.MustCompile(`(?i)(?:today|tomorrow|tonight|yesterday)`),     // relative dates
	regexp.MustCompile(`(?i)(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)`),
	regexp.MustCompile(`(?i)\d{1,2}\s+(?:` + monthNames + `)`), // fallback: 17 feb
}

// personWithHonorific matches a name directly followed by a title word.
var personWithHonorific = regexp.MustCompile(`(?i)\b[A-Z][a-z]+(?:\s+(?:mam|sir|madam|mrs|mr|ms|dr|prof|dad|mom))\b`)

// personAfterPreposition captures a lowercase word following a preposition.
var personAfterPreposition = regexp.MustCompile(`(?:(?i:to|with|from|by|for))\s+([a-z]+)\b`)

// personCapitalized matches any capitalized word as a last resort.
var personCapitalized = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// prepositionStopWords excludes temporal and generic words from the
// preposition strategy so "submit by friday" never yields a person.
var prepositionStopWords = map[string]struct{}{
	"the": {}, "you": {}, "me": {}, "him": {}, "her": {}, "it": {}, "them": {},
	"time": {}, "submit": {},
	"morning": {}, "afternoon": {}, "evening": {}, "night": {},
	"today": {}, "tomorrow": {}, "yesterday": {}, "tonight": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {},
	"saturday": {}, "sunday": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {}, "june": {},
	"july": {}, "august": {}, "september": {}, "october": {}, "november": {}, "december": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {}, "aug": {},
	"sep": {}, "oct": {}, "nov": {}, "dec": {},
	"date": {}, "day": {}, "hour": {}, "minute": {}, "week": {}, "month": {}, "year": {},
	"pm": {}, "am": {},
}

// capitalizedStopWords excludes sentence-initial, temporal, and generic
// capitalized words from the bare capitalized-word strategy. "Tomorrow"
// must never be read as a person.
var capitalizedStopWords = map[string]struct{}{
	"I": {}, "The": {}, "This": {}, "That": {}, "What": {}, "When": {}, "Where": {},
	"Why": {}, "How": {}, "You": {}, "Submit": {}, "Alert": {}, "Remind": {},
	"Your": {}, "Form": {},
	"Morning": {}, "Afternoon": {}, "Evening": {}, "Night": {}, "Tonight": {},
	"Today": {}, "Tomorrow": {}, "Yesterday": {},
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {}, "Friday": {},
	"Saturday": {}, "Sunday": {},
	"January": {}, "February": {}, "March": {}, "April": {}, "June": {}, "July": {},
	"August": {}, "September": {}, "October": {}, "November": {}, "December": {},
	"Jan": {}, "Feb": {}, "Mar": {}, "Apr": {}, "Jun": {}, "Jul": {}, "Aug": {},
	"Sep": {}, "Oct": {}, "Nov": {}, "Dec": {},
	"Date": {}, "Time": {}, "Day": {}, "Hour": {}, "Minute": {}, "Week": {},
	"Month": {}, "Year": {}, "Pm": {}, "Am": {},
}

// Extract scans text for temporal and person spans and picks the
// dominant entity per kind.
func Extract(text string) Extraction {
	timer := logging.StartTimer(logging.CategoryNLP, "Extract")
	defer timer.Stop()

	var out Extraction
	out.extractTimes(text)
	out.extractPerson(text)

	logging.NLPDebug("Extract: %d entities, time=%q, person=%q", len(out.Entities), out.Time, out.Person)
	return out
}

// extractTimes runs the ordered time patterns and folds the matches
// into a dominant value. A match becomes dominant when no dominant is
// set yet or when its text is at least as long as the current dominant;
// only matches that become dominant are recorded, and exact duplicates
// of the current dominant value are not re-appended.
func (x *Extraction) extractTimes(text string) {
	for _, pattern := range timePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if x.Time != "" && len(match) < len(x.Time) {
				continue
			}
			x.Time = match
			last := lastOfKind(x.Entities, KindTime)
			if last != match {
				x.Entities = append(x.Entities, EntitySpan{Text: match, Kind: KindTime})
			}
		}
	}
}

// extractPerson tries the three strategies in order and stops at the
// first that yields a result.
func (x *Extraction) extractPerson(text string) {
	strategies := []func(string) string{
		personByHonorific,
		personByPreposition,
		personByCapitalization,
	}
	for _, strategy := range strategies {
		if name := strategy(text); name != "" {
			x.Person = name
			x.Entities = append(x.Entities, EntitySpan{Text: name, Kind: KindPerson})
			return
		}
	}
}

func personByHonorific(text string) string {
	return personWithHonorific.FindString(text)
}

func personByPreposition(text string) string {
	for _, m := range personAfterPreposition.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, stop := prepositionStopWords[name]; stop {
			continue
		}
		if len(name) > 2 {
			return name
		}
	}
	return ""
}

func personByCapitalization(text string) string {
	for _, name := range personCapitalized.FindAllString(text, -1) {
		if _, stop := capitalizedStopWords[name]; stop {
			continue
		}
		if len(name) > 2 {
			return name
		}
	}
	return ""
}

// lastOfKind returns the text of the most recently appended span of the
// given kind, or "" if none exists.
func lastOfKind(spans []EntitySpan, kind Kind) string {
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].Kind == kind {
			return spans[i].Text
		}
	}
	return ""
}

// HasTime reports whether a non-sentinel dominant time was extracted.
func (x Extraction) HasTime() bool {
	return strings.TrimSpace(x.Time) != ""
}
