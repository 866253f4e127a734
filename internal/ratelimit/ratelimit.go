// internal/ratelimit/ratelimit.go
//
// Sliding-window submission limiter.
//
// Context
// -------
// Each visitor may submit at most Max lead forms per Window (3 per 15 minutes
// by default).  The limiter keeps, per visitor, a JSON array of millisecond
// timestamps in a storage.Store under
//
//	contactFormSubmissions[:<client>]
//
// where <client> is ClientKey(ip), a SHA-256 of the address so raw IPs never
// land in storage.
//
//   • CanSubmit          reads and filters.  It never writes, so it must
//     filter on every call; stale entries linger until the next record.
//   • RecordSubmission   reads, appends now, filters, and writes back.  Old
//     entries are pruned here and only here.
//
// Failure policy
// --------------
// Storage is advisory.  Any read, decode, or write failure fails open: the
// check reports allowed and a failed record is logged and dropped.  A
// storage outage never blocks a lead.
//
// Notes
// -----
// • The read-then-write in RecordSubmission is not atomic across instances
//   or concurrent requests from one visitor.  The cap can be overshot by the
//   number of racing submissions.  Server-side validation downstream is the
//   real gate.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/leadsite/internal/storage"
)

// StorageKey is the fixed key prefix for submission logs.
const StorageKey = "contactFormSubmissions"

const (
	DefaultMax    = 3
	DefaultWindow = 15 * time.Minute
)

// Decision is the result of CanSubmit.
type Decision struct {
	Allowed    bool
	Message    string        // set when Allowed is false
	RetryAfter time.Duration // time until the oldest active entry expires
}

// Limiter enforces the sliding window.  Safe for concurrent use as long as
// the underlying Store is.
type Limiter struct {
	store  storage.Store
	max    int
	window time.Duration
	now    func() time.Time
	log    *zap.SugaredLogger
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithMax overrides the submission cap.
func WithMax(n int) Option { return func(l *Limiter) { l.max = n } }

// WithWindow overrides the window length.
func WithWindow(d time.Duration) Option { return func(l *Limiter) { l.window = d } }

// WithClock injects a time source, used by tests.
func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

// WithLogger sets the logger for dropped writes.
func WithLogger(log *zap.SugaredLogger) Option { return func(l *Limiter) { l.log = log } }

// New returns a Limiter over store with the default 3 per 15 minutes.
func New(store storage.Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		max:    DefaultMax,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = zap.S()
	}
	if l.max < 1 {
		l.max = DefaultMax
	}
	if l.window <= 0 {
		l.window = DefaultWindow
	}
	return l
}

// ClientKey turns a client address into an anonymised storage suffix.
func ClientKey(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

// CanSubmit reports whether client may submit now.  It never mutates storage.
func (l *Limiter) CanSubmit(ctx context.Context, client string) Decision {
	stamps, err := l.read(ctx, client)
	if err != nil {
		l.log.Warnw("rate limit read failed, allowing", "err", err)
		return Decision{Allowed: true}
	}

	now := l.now().UnixMilli()
	active := l.active(stamps, now)
	if len(active) < l.max {
		return Decision{Allowed: true}
	}

	oldest := active[0]
	for _, ts := range active[1:] {
		if ts < oldest {
			oldest = ts
		}
	}
	retry := time.Duration(oldest+l.window.Milliseconds()-now) * time.Millisecond
	mins := int(math.Ceil(retry.Minutes()))
	if mins < 1 {
		mins = 1
	}
	return Decision{
		Allowed:    false,
		RetryAfter: retry,
		Message: fmt.Sprintf(
			"Too many submissions. Please wait %d minute%s before trying again.",
			mins, plural(mins)),
	}
}

// RecordSubmission appends now to client's log and prunes expired entries.
// Failures are logged and swallowed.
func (l *Limiter) RecordSubmission(ctx context.Context, client string) {
	stamps, err := l.read(ctx, client)
	if err != nil {
		l.log.Warnw("rate limit read failed, starting fresh log", "err", err)
		stamps = nil
	}

	now := l.now().UnixMilli()
	stamps = l.active(append(stamps, now), now)

	raw, err := json.Marshal(stamps)
	if err != nil {
		l.log.Warnw("rate limit encode failed", "err", err)
		return
	}
	err = safe(func() error { return l.store.SetItem(ctx, l.key(client), string(raw)) })
	if err != nil {
		l.log.Warnw("rate limit write dropped", "err", err)
	}
}

// read loads the raw timestamp list.  A missing key is an empty list.
func (l *Limiter) read(ctx context.Context, client string) (stamps []int64, err error) {
	var (
		raw string
		ok  bool
	)
	err = safe(func() (e error) {
		raw, ok, e = l.store.GetItem(ctx, l.key(client))
		return e
	})
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &stamps); err != nil {
		return nil, fmt.Errorf("ratelimit: decode log: %w", err)
	}
	return stamps, nil
}

// safe runs one store call and turns a panic into an error.
func safe(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ratelimit: store panic: %v", r)
		}
	}()
	return fn()
}

// active keeps timestamps inside the trailing window ending at now.
func (l *Limiter) active(stamps []int64, now int64) []int64 {
	cutoff := now - l.window.Milliseconds()
	out := stamps[:0:0]
	for _, ts := range stamps {
		if ts > cutoff && ts <= now {
			out = append(out, ts)
		}
	}
	return out
}

func (l *Limiter) key(client string) string {
	if client == "" {
		return StorageKey
	}
	return StorageKey + ":" + client
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
