package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/leadsite/internal/content"
	"github.com/yanizio/leadsite/internal/form"
	"github.com/yanizio/leadsite/internal/logger"
	"github.com/yanizio/leadsite/internal/ratelimit"
	"github.com/yanizio/leadsite/internal/requestinfo"
)

type handlers struct {
	leads   Leads
	content Content
}

/*──────────────────────────── lead forms ───────────────────────────────────*/

func (h *handlers) submit(formID string) handler {
	return func(r *http.Request) (int, response, *apiError) {
		return h.doSubmit(r, formID)
	}
}

func (h *handlers) submitByID(r *http.Request) (int, response, *apiError) {
	return h.doSubmit(r, chi.URLParam(r, "id"))
}

func (h *handlers) doSubmit(r *http.Request, formID string) (int, response, *apiError) {
	if _, ok := h.leads.Forms().Get(formID); !ok {
		return notFound(r)
	}

	var in form.Input
	if apiErr := readJSON(r, &in); apiErr != nil {
		return 0, response{}, apiErr
	}
	if in == nil {
		in = form.Input{}
	}

	rec, err := h.leads.Submit(r.Context(), formID, in, clientFrom(r))
	if err != nil {
		return 0, response{}, submitError(r, err)
	}
	return http.StatusCreated, response{ID: rec.ID}, nil
}

// clientFrom builds the submitter's view of the caller from the data the
// Enrich middleware attached.
func clientFrom(r *http.Request) form.Client {
	info := requestinfo.FromContext(r.Context())
	if info == nil {
		return form.Client{Key: ratelimit.ClientKey(""), UserAgent: r.UserAgent()}
	}
	return form.Client{
		Key:       ratelimit.ClientKey(info.IPString()),
		Secure:    info.Secure,
		UserAgent: info.UA.Raw,
		IsBot:     info.UA.IsBot,
		Country:   info.Geo.CountryISO,
	}
}

// submitError maps a Submit failure to a status and user-safe body.
func submitError(r *http.Request, err error) *apiError {
	var se *form.SubmitError
	if !errors.As(err, &se) {
		if errors.Is(err, form.ErrUnknownForm) {
			return errorf(http.StatusNotFound, "Not found.")
		}
		logger.FromContext(r.Context()).Errorw("submit failed", "err", err)
		return errorf(http.StatusInternalServerError, form.MsgBackend)
	}

	switch se.Kind {
	case form.KindValidation:
		return &apiError{
			Status: http.StatusUnprocessableEntity,
			Body:   response{Message: se.Message, Errors: se.Fields, Data: se.Data},
		}
	case form.KindRateLimited:
		return &apiError{
			Status:     http.StatusTooManyRequests,
			Body:       response{Message: se.Message},
			RetryAfter: int(math.Ceil(se.RetryAfter.Seconds())),
		}
	case form.KindInsecure, form.KindSensitive:
		return errorf(http.StatusForbidden, se.Message)
	default:
		return errorf(http.StatusInternalServerError, form.MsgBackend)
	}
}

func (h *handlers) listForms(r *http.Request) (int, response, *apiError) {
	reg := h.leads.Forms()
	out := make([]*form.FormDef, 0)
	for _, id := range reg.IDs() {
		fd, _ := reg.Get(id)
		out = append(out, fd)
	}
	return http.StatusOK, response{Data: out}, nil
}

func (h *handlers) formDef(r *http.Request) (int, response, *apiError) {
	fd, ok := h.leads.Forms().Get(chi.URLParam(r, "id"))
	if !ok {
		return notFound(r)
	}
	return http.StatusOK, response{Data: fd}, nil
}

/*──────────────────────────── content ──────────────────────────────────────*/

func (h *handlers) caseStudies(r *http.Request) (int, response, *apiError) {
	q := r.URL.Query()
	list, err := h.content.CaseStudies(r.Context(), content.CaseStudyFilter{
		PropertyType: q.Get("propertyType"),
		Featured:     content.ParseBool(q.Get("featured")),
		Limit:        atoi(q.Get("limit")),
	})
	return listResult(r, list, err)
}

func (h *handlers) caseStudy(r *http.Request) (int, response, *apiError) {
	cs, err := h.content.CaseStudy(r.Context(), chi.URLParam(r, "slug"))
	return itemResult(r, cs, err)
}

func (h *handlers) testimonials(r *http.Request) (int, response, *apiError) {
	q := r.URL.Query()
	list, err := h.content.Testimonials(r.Context(), content.TestimonialFilter{
		Featured:     content.ParseBool(q.Get("featured")),
		PropertyType: q.Get("propertyType"),
		Limit:        atoi(q.Get("limit")),
	})
	return listResult(r, list, err)
}

func (h *handlers) insights(r *http.Request) (int, response, *apiError) {
	q := r.URL.Query()
	list, err := h.content.Insights(r.Context(), content.InsightFilter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Limit:    atoi(q.Get("limit")),
	})
	return listResult(r, list, err)
}

func (h *handlers) insight(r *http.Request) (int, response, *apiError) {
	in, err := h.content.Insight(r.Context(), chi.URLParam(r, "slug"))
	return itemResult(r, in, err)
}

func listResult[T any](r *http.Request, list []T, err error) (int, response, *apiError) {
	if err != nil {
		logger.FromContext(r.Context()).Errorw("content fetch failed", "path", r.URL.Path, "err", err)
		return 0, response{}, errorf(http.StatusInternalServerError, form.MsgBackend)
	}
	if list == nil {
		list = []T{}
	}
	return http.StatusOK, response{Data: list}, nil
}

func itemResult[T any](r *http.Request, item *T, err error) (int, response, *apiError) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		return notFound(r)
	case err != nil:
		logger.FromContext(r.Context()).Errorw("content fetch failed", "path", r.URL.Path, "err", err)
		return 0, response{}, errorf(http.StatusInternalServerError, form.MsgBackend)
	}
	return http.StatusOK, response{Data: item}, nil
}

// atoi returns 0 for anything that is not a positive integer.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
