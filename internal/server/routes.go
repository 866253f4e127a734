// internal/server/routes.go
//
// Router assembly.
//
// Context
// -------
// Routes builds the chi tree for the whole site API.  Middleware order,
// outermost first:
//
//  1. RequestLog      request id + request-scoped logger
//  2. Security        static security headers
//  3. ForceHTTPS      308 to https (only when http.force_https is on)
//  4. BodyLimit       caps JSON bodies
//  5. Enrich          client IP, user agent, geo, secure flag
//
// /healthz and /metrics sit outside ForceHTTPS so probes on the private
// network keep working.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/leadsite/internal/content"
	"github.com/yanizio/leadsite/internal/form"
	"github.com/yanizio/leadsite/internal/middleware"
	"github.com/yanizio/leadsite/internal/requestinfo"
)

// Leads is the part of *form.Submitter the handlers use.
type Leads interface {
	Submit(ctx context.Context, formID string, in form.Input, c form.Client) (*form.Receipt, error)
	Forms() *form.Registry
}

// Content is the part of *content.Repository the handlers use.
type Content interface {
	CaseStudies(ctx context.Context, f content.CaseStudyFilter) ([]content.CaseStudy, error)
	CaseStudy(ctx context.Context, slug string) (*content.CaseStudy, error)
	Testimonials(ctx context.Context, f content.TestimonialFilter) ([]content.Testimonial, error)
	Insights(ctx context.Context, f content.InsightFilter) ([]content.Insight, error)
	Insight(ctx context.Context, slug string) (*content.Insight, error)
}

// Deps carries everything Routes needs.
type Deps struct {
	Leads        Leads
	Content      Content
	Info         *requestinfo.Resolver
	Log          *zap.SugaredLogger
	ForceHTTPS   bool
	MaxBodyBytes int64 // 0 disables the cap
	Ready        func(ctx context.Context) error
}

// Routes returns the site API handler.
func Routes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.S()
	}
	h := &handlers{leads: d.Leads, content: d.Content}

	r := chi.NewRouter()
	r.Use(middleware.RequestLog(d.Log))
	r.Use(middleware.Security)

	r.Get("/healthz", healthz(d.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.ForceHTTPS {
			var trusted func(*http.Request) bool
			if d.Info != nil {
				trusted = d.Info.TrustedPeer
			}
			r.Use(func(next http.Handler) http.Handler {
				return middleware.ForceHTTPS(trusted, next)
			})
		}
		r.Use(middleware.BodyLimit(d.MaxBodyBytes))
		if d.Info != nil {
			r.Use(d.Info.Enrich)
		}

		r.Route("/api", func(api chi.Router) {
			api.Post("/contact", wrap(h.submit("contact")))
			api.Post("/buyer-applications", wrap(h.submit("buyer")))
			api.Post("/seller-inquiries", wrap(h.submit("seller")))

			api.Get("/forms", wrap(h.listForms))
			api.Get("/forms/{id}", wrap(h.formDef))
			api.Post("/forms/{id}", wrap(h.submitByID))

			api.Get("/case-studies", wrap(h.caseStudies))
			api.Get("/case-studies/{slug}", wrap(h.caseStudy))
			api.Get("/testimonials", wrap(h.testimonials))
			api.Get("/insights", wrap(h.insights))
			api.Get("/insights/{slug}", wrap(h.insight))

			api.NotFound(wrap(notFound))
		})
	})
	return r
}

func healthz(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
