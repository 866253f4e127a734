// internal/content/repository.go
//
// Fetch hooks for marketing content.
//
// Context
// -------
// Pages show case studies, testimonials, and insights.  Every fetch follows
// the same pipeline:
//
//	records.Select → ParseJSONFields → SnakeToCamel → typed decode
//
// and stored body HTML is re-sanitized with the rich-text policy before it
// leaves the process.  Results are held in a TTL-bounded LRU keyed by the
// query, and concurrent misses for one key collapse into a single database
// round trip via singleflight.
//
// Notes
// -----
// • Decoded models are shared between callers through the cache.  Treat
//   them as read-only.
// • A record that fails to decode is logged and skipped; the rest of the
//   page still renders.
package content

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/leadsite/internal/cache"
	"github.com/yanizio/leadsite/internal/metrics"
	"github.com/yanizio/leadsite/internal/records"
	"github.com/yanizio/leadsite/internal/sanitize"
	"github.com/yanizio/leadsite/internal/transform"
)

// ErrNotFound is returned by the single-item lookups.
var ErrNotFound = errors.New("content: not found")

const (
	kindCaseStudies  = "case_studies"
	kindTestimonials = "testimonials"
	kindInsights     = "insights"
)

// Defaults for Options.
const (
	DefaultTTL   = 5 * time.Minute
	DefaultSize  = 256
	DefaultLimit = 50
)

// Options tunes the repository cache.
type Options struct {
	TTL  time.Duration
	Size int
	Log  *zap.SugaredLogger
}

// Repository serves decoded content from a records.Store.
type Repository struct {
	store records.Store
	cache *cache.LRU[string, any]
	sfg   singleflight.Group
	log   *zap.SugaredLogger
}

// NewRepository wraps store.  Zero Options fields take the defaults.
func NewRepository(store records.Store, o Options) *Repository {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Log == nil {
		o.Log = zap.S()
	}
	return &Repository{
		store: store,
		cache: cache.New[string, any](o.Size, o.TTL),
		log:   o.Log,
	}
}

// Purge empties the cache.
func (r *Repository) Purge() {
	r.cache.Purge()
	metrics.ContentCacheEntries.Set(0)
}

// -----------------------------------------------------------------------------
// Case studies
// -----------------------------------------------------------------------------

// CaseStudyFilter narrows CaseStudies.  Zero values match everything.
type CaseStudyFilter struct {
	PropertyType string
	Featured     bool
	Limit        int
}

// CaseStudies lists published case studies, newest first.
func (r *Repository) CaseStudies(ctx context.Context, f CaseStudyFilter) ([]CaseStudy, error) {
	key := fmt.Sprintf("cs|%s|%t|%d", f.PropertyType, f.Featured, f.Limit)
	return fetch(ctx, r, kindCaseStudies, key, func(ctx context.Context) ([]CaseStudy, error) {
		q := records.Query{Limit: limit(f.Limit)}.
			Where(records.NotNull("published_at")).
			OrderBy("published_at", true)
		if f.PropertyType != "" {
			q = q.Where(records.Eq("property_type", f.PropertyType))
		}
		if f.Featured {
			q = q.Where(records.Eq("featured", true))
		}
		return loadAll[CaseStudy](ctx, r, kindCaseStudies, q, cleanCaseStudy)
	})
}

// CaseStudy returns one published case study by slug.
func (r *Repository) CaseStudy(ctx context.Context, slug string) (*CaseStudy, error) {
	slug = MakeSlug(slug)
	list, err := fetch(ctx, r, kindCaseStudies, "cs-slug|"+slug, func(ctx context.Context) ([]CaseStudy, error) {
		q := records.Query{Limit: 1}.
			Where(records.Eq("slug", slug), records.NotNull("published_at"))
		return loadAll[CaseStudy](ctx, r, kindCaseStudies, q, cleanCaseStudy)
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// -----------------------------------------------------------------------------
// Testimonials
// -----------------------------------------------------------------------------

// TestimonialFilter narrows Testimonials.
type TestimonialFilter struct {
	Featured     bool
	PropertyType string
	Limit        int
}

// Testimonials lists testimonials, newest first.
func (r *Repository) Testimonials(ctx context.Context, f TestimonialFilter) ([]Testimonial, error) {
	key := fmt.Sprintf("t|%t|%s|%d", f.Featured, f.PropertyType, f.Limit)
	return fetch(ctx, r, kindTestimonials, key, func(ctx context.Context) ([]Testimonial, error) {
		q := records.Query{Limit: limit(f.Limit)}.OrderBy("created_at", true)
		if f.Featured {
			q = q.Where(records.Eq("featured", true))
		}
		if f.PropertyType != "" {
			q = q.Where(records.Eq("property_type", f.PropertyType))
		}
		return loadAll[Testimonial](ctx, r, kindTestimonials, q, nil)
	})
}

// -----------------------------------------------------------------------------
// Insights
// -----------------------------------------------------------------------------

// InsightFilter narrows Insights.  Query matches titles containing it.
type InsightFilter struct {
	Category string
	Query    string
	Limit    int
}

// Insights lists published insights, newest first.
func (r *Repository) Insights(ctx context.Context, f InsightFilter) ([]Insight, error) {
	term := strings.TrimSpace(sanitize.Sanitize(f.Query))
	key := fmt.Sprintf("i|%s|%s|%d", f.Category, strings.ToLower(term), f.Limit)
	return fetch(ctx, r, kindInsights, key, func(ctx context.Context) ([]Insight, error) {
		q := records.Query{Limit: limit(f.Limit)}.
			Where(records.NotNull("published_at")).
			OrderBy("published_at", true)
		if f.Category != "" {
			q = q.Where(records.Eq("category", f.Category))
		}
		if term != "" {
			q = q.Where(records.Like("title", "%"+escapeLike(term)+"%"))
		}
		return loadAll[Insight](ctx, r, kindInsights, q, cleanInsight)
	})
}

// Insight returns one published insight by slug.
func (r *Repository) Insight(ctx context.Context, slug string) (*Insight, error) {
	slug = MakeSlug(slug)
	list, err := fetch(ctx, r, kindInsights, "i-slug|"+slug, func(ctx context.Context) ([]Insight, error) {
		q := records.Query{Limit: 1}.
			Where(records.Eq("slug", slug), records.NotNull("published_at"))
		return loadAll[Insight](ctx, r, kindInsights, q, cleanInsight)
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// -----------------------------------------------------------------------------
// Pipeline
// -----------------------------------------------------------------------------

// fetch serves key from cache or runs load once across concurrent callers.
func fetch[T any](ctx context.Context, r *Repository, kind, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := r.cache.Get(key); ok {
		metrics.ContentFetchTotal.WithLabelValues(kind, "cache").Inc()
		return v.(T), nil
	}

	v, err, _ := r.sfg.Do(key, func() (any, error) {
		if v, ok := r.cache.Get(key); ok {
			return v, nil
		}
		out, err := load(context.WithoutCancel(ctx))
		if err != nil {
			metrics.ContentFetchErrorsTotal.WithLabelValues(kind).Inc()
			return nil, err
		}
		r.cache.Add(key, out)
		metrics.ContentCacheEntries.Set(float64(r.cache.Len()))
		metrics.ContentFetchTotal.WithLabelValues(kind, "db").Inc()
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// loadAll selects rows and decodes each through the normalisation pipeline.
func loadAll[T any](ctx context.Context, r *Repository, table string, q records.Query, clean func(*T)) ([]T, error) {
	rows, err := r.store.Select(ctx, table, q)
	if err != nil {
		return nil, fmt.Errorf("content: load %s: %w", table, err)
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		if err := transform.Decode(transform.Normalize(row, jsonColumns...), &item); err != nil {
			r.log.Warnw("content record skipped", "table", table, "id", row["id"], "err", err)
			continue
		}
		if clean != nil {
			clean(&item)
		}
		out = append(out, item)
	}
	return out, nil
}

func cleanCaseStudy(c *CaseStudy) { c.Body = sanitize.RichText(c.Body) }

func cleanInsight(i *Insight) { i.Body = sanitize.RichText(i.Body) }

func limit(n int) int {
	if n <= 0 || n > DefaultLimit {
		return DefaultLimit
	}
	return n
}

// escapeLike neutralises LIKE wildcards in user text.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ParseBool reads a query-string flag.  Anything unparsable is false.
func ParseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
