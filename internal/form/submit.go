// internal/form/submit.go
//
// Lead forms: submission orchestrator.
//
// Context
//   Submit runs the whole pipeline for one lead, strictly in order, and stops
//   at the first failing step:
//
//     1. rate limit      Limiter.CanSubmit(client)
//     2. validation      ValidateForm + extra checks
//     3. secure context  Client.Secure
//     4. sensitive data  PreventSensitiveStorage over the posted field names
//     5. write           records.Store.Insert(table, snake_case row)
//     6. record          Limiter.RecordSubmission(client)
//     7. notify          form actions, queued, never awaited
//
//   Failures come back as *SubmitError with a Kind the HTTP layer maps to a
//   status code.  Backend errors carry a generic user message; the cause is
//   logged and kept in Err, never shown.
//
// Notes
//   •  The limiter and the sensitive-data check are UX guards.  Neither is a
//      security boundary; the database constraints and server-side
//      validation are.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/leadsite/internal/logger"
	"github.com/yanizio/leadsite/internal/metrics"
	"github.com/yanizio/leadsite/internal/ratelimit"
	"github.com/yanizio/leadsite/internal/records"
	"github.com/yanizio/leadsite/internal/security"
)

// User-facing messages for whole-form failures.
const (
	MsgValidation = "Please correct the highlighted fields."
	MsgInsecure   = "Submissions require a secure connection.  Please reload the page over HTTPS."
	MsgSensitive  = "Your submission contains fields that cannot be accepted.  Please remove any passwords or keys and try again."
	MsgBackend    = "An error occurred. Please try again."
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// Kind classifies a SubmitError.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindRateLimited
	KindInsecure
	KindSensitive
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindInsecure:
		return "insecure"
	case KindSensitive:
		return "sensitive"
	case KindBackend:
		return "backend"
	default:
		return "none"
	}
}

// SubmitError is returned by Submit.  Fields and Data are set for
// KindValidation only.
type SubmitError struct {
	Kind       Kind
	Message    string
	Fields     []ValidationError
	Data       SanitizedFormData
	RetryAfter time.Duration // KindRateLimited only
	Err        error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("form submit %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("form submit %s: %s", e.Kind, e.Message)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindNone when err is not a SubmitError.
func KindOf(err error) Kind {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNone
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool { return KindOf(err) == KindValidation }

// -----------------------------------------------------------------------------
// Submitter
// -----------------------------------------------------------------------------

// Limiter is the part of ratelimit.Limiter the submitter uses.
type Limiter interface {
	CanSubmit(ctx context.Context, client string) ratelimit.Decision
	RecordSubmission(ctx context.Context, client string)
}

// Client describes who is submitting.  The HTTP layer fills it from the
// request.
type Client struct {
	Key       string // rate-limit key, see ratelimit.ClientKey
	Secure    bool
	UserAgent string
	IsBot     bool
	Country   string // ISO code when geo lookup is enabled
}

// Receipt is returned on success.
type Receipt struct {
	ID   string
	Data SanitizedFormData
}

// Submitter runs the lead pipeline.
type Submitter struct {
	forms    *Registry
	store    records.Store
	limiter  Limiter
	notifier Notifier
	notify   NotifyDefaults
	now      func() time.Time
	newID    func() string
}

// Option customises a Submitter.
type Option func(*Submitter)

// WithRegistry replaces the built-in form registry.
func WithRegistry(r *Registry) Option { return func(s *Submitter) { s.forms = r } }

// WithNotifier enables form actions.
func WithNotifier(n Notifier, d NotifyDefaults) Option {
	return func(s *Submitter) { s.notifier, s.notify = n, d }
}

// WithClock sets the time source for created_at.
func WithClock(now func() time.Time) Option { return func(s *Submitter) { s.now = now } }

// WithIDs sets the id generator.
func WithIDs(f func() string) Option { return func(s *Submitter) { s.newID = f } }

// NewSubmitter wires a Submitter.  Without WithRegistry the embedded forms
// are used.
func NewSubmitter(store records.Store, limiter Limiter, opts ...Option) (*Submitter, error) {
	s := &Submitter{
		store:   store,
		limiter: limiter,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	if s.forms == nil {
		r, err := Builtin()
		if err != nil {
			return nil, err
		}
		s.forms = r
	}
	return s, nil
}

// Forms returns the registry in use.
func (s *Submitter) Forms() *Registry { return s.forms }

// Submit validates, stores, and announces one lead.
func (s *Submitter) Submit(ctx context.Context, formID string, in Input, c Client) (*Receipt, error) {
	fd, ok := s.forms.Get(formID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, formID)
	}
	log := logger.FromContext(ctx).With("form", formID)

	// 1. rate limit
	if d := s.limiter.CanSubmit(ctx, c.Key); !d.Allowed {
		metrics.RateLimitBlockedTotal.WithLabelValues(formID).Inc()
		return nil, s.fail(fd, &SubmitError{Kind: KindRateLimited, Message: d.Message, RetryAfter: d.RetryAfter})
	}

	// 2. validation
	res := ValidateForm(fd, in)
	if !res.Valid {
		return nil, s.fail(fd, &SubmitError{
			Kind: KindValidation, Message: MsgValidation,
			Fields: res.Errors, Data: res.Data,
		})
	}

	// 3. secure context
	if !c.Secure {
		log.Warnw("submission over insecure transport")
		return nil, s.fail(fd, &SubmitError{Kind: KindInsecure, Message: MsgInsecure})
	}

	// 4. sensitive data
	if !security.PreventSensitiveStorage(in.Keys()) {
		log.Warnw("submission carried sensitive-looking fields")
		return nil, s.fail(fd, &SubmitError{Kind: KindSensitive, Message: MsgSensitive})
	}

	// 5. write
	id := s.newID()
	row := s.row(fd, res.Data, id, c)
	if _, err := s.store.Insert(ctx, fd.Table, row); err != nil {
		log.Errorw("lead insert failed", "table", fd.Table, "err", err)
		return nil, s.fail(fd, &SubmitError{Kind: KindBackend, Message: MsgBackend, Err: err})
	}

	// 6. record
	s.limiter.RecordSubmission(ctx, c.Key)
	metrics.LeadSubmissionsTotal.WithLabelValues(formID, "ok").Inc()
	log.Infow("lead stored", "id", id, "bot", c.IsBot, "country", c.Country)

	// 7. notify
	s.runActions(ctx, log, fd, id, res.Data, c)

	return &Receipt{ID: id, Data: res.Data}, nil
}

// row maps sanitized data onto columns and adds server metadata.
func (s *Submitter) row(fd *FormDef, data SanitizedFormData, id string, c Client) records.Record {
	row := make(records.Record, len(data)+4)
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if v, ok := data[f.Name]; ok {
			row[f.Column] = v
		}
	}
	row["id"] = id
	row["created_at"] = s.now().UTC()
	row["user_agent"] = c.UserAgent
	row["is_bot"] = c.IsBot
	return row
}

func (s *Submitter) fail(fd *FormDef, e *SubmitError) error {
	metrics.LeadSubmissionsTotal.WithLabelValues(fd.ID, e.Kind.String()).Inc()
	return e
}
