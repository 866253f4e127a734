// internal/sanitize/sanitize.go
//
// Free-text sanitizer for lead-form input.
//
// Context
// -------
// Every value a visitor types into a lead form passes through Sanitize
// before any field rule looks at it.  The pass is a regex filter, not an
// HTML parser:
//
//  1. Trim surrounding whitespace.
//  2. Drop <script>…</script> blocks (case-insensitive, non-greedy).
//  3. Strip any remaining tag.
//  4. Drop `javascript:` URI prefixes.
//  5. Drop inline event-handler openers such as `onclick=`.
//  6. Drop entity-encoded `<script` and `</script` openers.
//
// Script blocks go first.  Stripping tags earlier would leave the script
// body behind as plain text.
//
// Notes
// -----
//   - The pass repeats until the output stops changing, so nested payloads
//     such as "javajavascript:script:" cannot reassemble after one round and
//     Sanitize(Sanitize(s)) == Sanitize(s) for every s.
//   - Every replacement deletes text, so the loop always terminates.
//   - Oxford commas, two spaces after periods.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRe   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	tagRe           = regexp.MustCompile(`<[^>]*>`)
	jsURIRe         = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe  = regexp.MustCompile(`(?i)on\w+\s*=`)
	encodedScriptRe = regexp.MustCompile(`(?i)(?:&lt;|&#x0*3c;|&#0*60;)/?script`)
)

// Sanitize returns s with markup and script vectors removed.  It never
// fails; empty or whitespace-only input yields "".
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	for {
		next := pass(s)
		if next == s {
			return next
		}
		s = next
	}
}

// pass runs one round of the filter chain in its required order.
func pass(s string) string {
	s = strings.TrimSpace(s)
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	s = jsURIRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	s = encodedScriptRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
