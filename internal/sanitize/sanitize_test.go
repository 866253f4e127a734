// internal/sanitize/sanitize_test.go
//
// Unit-tests for the free-text sanitizer.
//
// Run: go test ./internal/sanitize -v

package sanitize

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n ", ""},
		{"plain text trimmed", "  Hello there  ", "Hello there"},
		{"script block", "Hi <script>alert(1)</script>there", "Hi there"},
		{"script block mixed case", "a<ScRiPt type=\"x\">evil()</sCrIpT >b", "ab"},
		{"multiline script", "a<script>\nline1\nline2\n</script>b", "ab"},
		{"tags stripped", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"javascript uri", "javascript:alert(1)", "alert(1)"},
		{"event handler", "<img src=x onerror=alert(1)>caption", "caption"},
		{"bare event handler", "onclick=alert(1)", "alert(1)"},
		{"encoded lt script", "&lt;script&gt;x", "&gt;x"},
		{"encoded hex script", "&#x3C;script>x", ">x"},
		{"encoded decimal closing", "x&#60;/script>", "x>"},
		{"nested javascript", "javajavascript:script:go", "go"},
		{"apostrophes survive", "O'Brien-Smith", "O'Brien-Smith"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"  padded  ",
		"<scr<script>ipt>alert(1)</script>",
		"<<b>script>x</script>",
		"oonclick=nclick=alert(1)",
		"javajavascript:script:",
		"&lt;&lt;scriptscript",
		"<a href=\"javascript:void(0)\" onmouseover = 'x'>link</a>",
		"multi\nline <p>text</p>\n",
		"\xff\xfeinvalid utf8 <b>x</b>",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestSanitize_StripsDangerousLiterals(t *testing.T) {
	payloads := []string{
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		"onclick=alert(1)",
	}
	wrappers := []string{"%s", "before %s after", "<div>%s</div>", "%s%s"}

	for _, p := range payloads {
		for _, w := range wrappers {
			in := strings.ReplaceAll(w, "%s", p)
			out := Sanitize(in)
			for _, bad := range payloads {
				if strings.Contains(out, bad) {
					t.Errorf("Sanitize(%q) = %q still contains %q", in, out, bad)
				}
			}
		}
	}
}

func TestRichText(t *testing.T) {
	out := RichText(`<p>Closed <strong>$4.2M</strong></p><script>alert(1)</script>`)
	if strings.Contains(out, "<script") {
		t.Fatalf("script survived: %q", out)
	}
	if !strings.Contains(out, "<strong>$4.2M</strong>") {
		t.Fatalf("safe markup dropped: %q", out)
	}
}
