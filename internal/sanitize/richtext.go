package sanitize

import "github.com/microcosm-cc/bluemonday"

// richPolicy keeps the formatting editors use in insight and case-study
// bodies (headings, lists, links, images) and drops everything else.
var richPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// RichText cleans stored HTML before the content API hands it to a browser.
// Unlike Sanitize it preserves safe markup.
func RichText(html string) string {
	return richPolicy.Sanitize(html)
}
