package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const (
	// DefaultMaxChars is the advisory per-segment character budget used when
	// merging adjacent units. A unit longer than the budget is kept whole,
	// never truncated.
	DefaultMaxChars = 3000

	// minUnitRunes drops fragments too short to carry a correctable sentence.
	minUnitRunes = 5

	// similarityThreshold is the Jaro-Winkler score above which two units are
	// treated as near-duplicates.
	similarityThreshold = 0.95
)

var (
	spaceRun    = regexp.MustCompile(`[ \t]+`)
	punctRun    = regexp.MustCompile(`([,.;:!?])\1+`)
	numericLine = regexp.MustCompile(`^[\d\s.,%/-]+$`)
	ruleLine    = regexp.MustCompile(`^[-=_*~#]{3,}$`)
	urlLine     = regexp.MustCompile(`^(https?://|www\.)\S+$`)
)

// Prepare turns raw extracted units into the segment list the corrector
// consumes: each unit is cleaned and normalised, noise units are dropped,
// adjacent survivors are merged up to maxChars, and near-duplicates are
// filtered. Document order is preserved throughout.
func Prepare(units []string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	cleaned := make([]string, 0, len(units))
	for _, u := range units {
		c := cleanUnit(u)
		if c == "" {
			continue
		}
		cleaned = append(cleaned, c)
	}

	return dedupe(combine(cleaned, maxChars))
}

// cleanUnit normalises one raw unit and returns "" when the unit is noise.
func cleanUnit(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// Strip control characters, keep tabs/newlines for the collapse below.
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)

	// Collapse internal whitespace to single spaces.
	s = strings.ReplaceAll(s, "\n", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	// Repeated punctuation ("!!", "??", ",,") adds nothing for correction.
	s = punctRun.ReplaceAllString(s, "$1")

	if dropUnit(s) {
		return ""
	}

	return ensureTerminated(s)
}

// dropUnit reports units that carry nothing correctable: tiny fragments,
// bare numbers, horizontal rules, naked URLs.
func dropUnit(s string) bool {
	if len([]rune(s)) < minUnitRunes {
		return true
	}
	if numericLine.MatchString(s) {
		return true
	}
	if ruleLine.MatchString(s) {
		return true
	}
	if urlLine.MatchString(s) {
		return true
	}
	return false
}

// ensureTerminated appends a full stop to units that end mid-sentence, so a
// merged segment reads as separate sentences to the model.
func ensureTerminated(s string) string {
	last, _ := utf8.DecodeLastRuneInString(s)
	switch last {
	case '.', '!', '?', ':', ';', '"', '\'', ')', ']', '。', '！', '？':
		return s
	}
	return s + "."
}

// combine merges adjacent units into segments of at most maxChars. The
// budget is advisory: a single unit longer than maxChars becomes its own
// segment untouched.
func combine(units []string, maxChars int) []string {
	var (
		segments []string
		current  strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, u := range units {
		if current.Len() > 0 && current.Len()+1+len(u) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(u)
	}
	flush()

	return segments
}

// dedupe drops segments that are contained in, or nearly identical to, an
// earlier segment. Containment catches headers repeated per page; the
// Jaro-Winkler check catches boilerplate with trivial variations.
func dedupe(segments []string) []string {
	kept := make([]string, 0, len(segments))

	for _, seg := range segments {
		duplicate := false
		for _, prev := range kept {
			if strings.Contains(prev, seg) {
				duplicate = true
				break
			}
			if matchr.JaroWinkler(prev, seg, true) >= similarityThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, seg)
		}
	}

	return kept
}
