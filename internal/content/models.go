package content

import "github.com/yanizio/leadsite/internal/transform"

// Columns stored as JSON text.
var jsonColumns = []string{"results", "testimonial", "tags", "additional_images"}

// Quote is the testimonial embedded in a case study.
type Quote struct {
	Quote   string `json:"quote"`
	Author  string `json:"author"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// CaseStudy is a closed deal written up for the site.
type CaseStudy struct {
	ID               ID                            `json:"id"`
	Slug             string                        `json:"slug"`
	Title            string                        `json:"title"`
	PropertyType     string                        `json:"propertyType"`
	Location         string                        `json:"location"`
	HeroImage        string                        `json:"heroImage"`
	Summary          string                        `json:"summary"`
	Challenge        string                        `json:"challenge"`
	Solution         string                        `json:"solution"`
	Body             string                        `json:"body"`
	Results          transform.JSONField[[]string] `json:"results"`
	Testimonial      transform.JSONField[Quote]    `json:"testimonial"`
	Tags             transform.JSONField[[]string] `json:"tags"`
	AdditionalImages transform.JSONField[[]string] `json:"additionalImages"`
	Featured         Flag                          `json:"featured"`
	PublishedAt      Time                          `json:"publishedAt"`
}

// Testimonial is a client quote shown on landing pages.
type Testimonial struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	Quote        string `json:"quote"`
	Rating       int    `json:"rating"`
	Image        string `json:"image"`
	PropertyType string `json:"propertyType"`
	Featured     Flag   `json:"featured"`
	CreatedAt    Time   `json:"createdAt"`
}

// Insight is a market article.
type Insight struct {
	ID          ID                            `json:"id"`
	Slug        string                        `json:"slug"`
	Title       string                        `json:"title"`
	Excerpt     string                        `json:"excerpt"`
	Body        string                        `json:"body"`
	Category    string                        `json:"category"`
	Author      string                        `json:"author"`
	Image       string                        `json:"image"`
	Tags        transform.JSONField[[]string] `json:"tags"`
	ReadTime    int                           `json:"readTime"`
	Featured    Flag                          `json:"featured"`
	PublishedAt Time                          `json:"publishedAt"`
}
