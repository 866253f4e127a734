// internal/content/slug.go
//
// MakeSlug(title) converts arbitrary text into a URL-safe slug restricted to
// ASCII a-z, 0-9 and "-".  Case-study and insight lookups normalise the
// {slug} path segment with it so "/api/case-studies/Midtown%20Tower" and
// "/api/case-studies/midtown-tower" hit the same row and cache entry.
//
// Rules
// -----
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one "-".
// 3. Trim leading and trailing "-".
// 4. If the result is empty, return "item".
// 5. Cap at 100 bytes, trimming a trailing "-" left by the cut.

package content

import "strings"

const maxSlug = 100

// MakeSlug converts title → lower-kebab ASCII.
func MakeSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastWasDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "item"
	}
	if len(slug) > maxSlug {
		slug = strings.TrimRight(slug[:maxSlug], "-")
	}
	return slug
}
