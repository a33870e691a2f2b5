package correct

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Item is a single correction produced by the model: one faulty sentence and
// its fixed form. The JSON field names follow the response contract given to
// the model in the system instruction.
type Item struct {
	// Origin is the faulty sentence exactly as it appeared in the segment.
	Origin string `json:"theorigin"`

	// Corrected is the fixed version of that sentence.
	Corrected string `json:"corrected"`
}

// rawItem mirrors Item with pointer fields so records missing a key can be
// told apart from records with an empty value.
type rawItem struct {
	Origin    *string `json:"theorigin"`
	Corrected *string `json:"corrected"`
}

var (
	arrayPattern  = regexp.MustCompile(`\[[\s\S]*?\]`)
	objectPattern = regexp.MustCompile(`\{[\s\S]*?\}`)
)

// Parse recovers a correction list from raw model output.
//
// Models frequently wrap the requested JSON in markdown fences or surround it
// with prose, so Parse applies a chain of strategies in order of strictness:
//
//  1. strip markdown code fences and decode the remainder directly
//  2. decode each bracketed candidate found in the text
//  3. decode each braced candidate as a single record and wrap it in a list
//  4. salvage everything between the first '[' and the last ']'
//
// The first strategy that yields a well-formed list wins. Records missing
// either field, or carrying non-string values, are dropped rather than
// failing the whole response. A bare "[]" is a valid empty result.
//
// When no strategy succeeds, Parse returns a [*UnparsableError] carrying a
// truncated excerpt of the raw output.
func Parse(raw string) ([]Item, error) {
	cleaned := stripMarkdown(raw)

	if items, ok := decodeArray(cleaned); ok {
		return items, nil
	}

	for _, candidate := range arrayPattern.FindAllString(cleaned, -1) {
		if items, ok := decodeArray(candidate); ok {
			return items, nil
		}
	}

	for _, candidate := range objectPattern.FindAllString(cleaned, -1) {
		if item, ok := decodeObject(candidate); ok {
			return []Item{item}, nil
		}
	}

	if start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); start >= 0 && end > start {
		if items, ok := decodeArray(cleaned[start : end+1]); ok {
			return items, nil
		}
	}

	return nil, &UnparsableError{
		Raw: excerpt(raw),
		Err: errors.New("no correction list found in model output"),
	}
}

// decodeArray attempts to decode s as a JSON array of correction records,
// dropping malformed records. A non-empty array from which no record survives
// is rejected so that stray bracketed fragments in prose (e.g. "[1]") do not
// shadow the real correction list further along the chain.
func decodeArray(s string) ([]Item, bool) {
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(s), &records); err != nil {
		return nil, false
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		if item, ok := decodeObject(string(rec)); ok {
			items = append(items, item)
		}
	}
	if len(records) > 0 && len(items) == 0 {
		return nil, false
	}
	return items, true
}

// decodeObject attempts to decode s as a single correction record.
func decodeObject(s string) (Item, bool) {
	var r rawItem
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Item{}, false
	}
	if r.Origin == nil || r.Corrected == nil {
		return Item{}, false
	}
	return Item{Origin: *r.Origin, Corrected: *r.Corrected}, true
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
