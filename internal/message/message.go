// internal/message/message.go
//
// Outbound notification queue.
//
// Context
// -------
// After a lead is stored the site notifies the brokerage: an email to the
// sales inbox and, optionally, a JSON webhook into the CRM.  Neither may slow
// the HTTP response, so the submitter enqueues jobs here and a small worker
// pool delivers them.
//
//   • Email    handed to a Mailer.  The default LogMailer only logs; an SMTP
//              or provider-backed Mailer plugs in at bootstrap.
//   • Webhook  POSTed with the queue's http.Client.  Non-2xx is a failure.
//
// Jobs are best-effort.  A full queue rejects with ErrQueueFull, failed
// deliveries are logged and counted, and nothing is retried.
//
// Notes
// -----
// • Close stops intake, drains what is queued, and waits for the workers.
package message

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/leadsite/internal/metrics"
)

var (
	// ErrQueueFull is returned when the buffer is at capacity.
	ErrQueueFull = errors.New("message: queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("message: queue closed")
)

// Email is an outbound email job.
type Email struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string // optional
}

// Webhook is an outbound HTTP job.  Method defaults to POST and the body is
// sent as application/json unless Header says otherwise.
type Webhook struct {
	URL    string
	Method string
	Header http.Header
	Body   []byte
}

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// LogMailer writes the envelope to the log instead of sending.
type LogMailer struct{ Log *zap.SugaredLogger }

// Send implements Mailer.
func (m LogMailer) Send(_ context.Context, msg Email) error {
	log := m.Log
	if log == nil {
		log = zap.S()
	}
	log.Infow("email queued", "to", msg.To, "subject", msg.Subject, "len", len(msg.Text))
	return nil
}

// Options configures a Queue.  Zero fields take the defaults.
type Options struct {
	Workers   int           // default 2
	QueueSize int           // default 64
	Timeout   time.Duration // per job, default 10s
	Mailer    Mailer        // default LogMailer
	Client    *http.Client  // default http.Client with Timeout
	Log       *zap.SugaredLogger
}

type job struct {
	email   *Email
	webhook *Webhook
}

// Queue is a bounded job buffer with a fixed worker pool.
type Queue struct {
	jobs    chan job
	mailer  Mailer
	client  *http.Client
	timeout time.Duration
	log     *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	g      *errgroup.Group
}

// NewQueue starts the workers.  ctx supplies values only: cancelling it does
// not stop them.  Close is the only way the workers exit, so jobs accepted
// during a graceful shutdown are still delivered.
func NewQueue(ctx context.Context, o Options) *Queue {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Log == nil {
		o.Log = zap.S()
	}
	if o.Mailer == nil {
		o.Mailer = LogMailer{Log: o.Log}
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}

	q := &Queue{
		jobs:    make(chan job, o.QueueSize),
		mailer:  o.Mailer,
		client:  o.Client,
		timeout: o.Timeout,
		log:     o.Log,
	}

	base := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	for i := 0; i < o.Workers; i++ {
		g.Go(func() error {
			q.work(base)
			return nil
		})
	}
	q.g = g
	return q
}

// EnqueueEmail queues msg without blocking.
func (q *Queue) EnqueueEmail(_ context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return errors.New("message: email without recipients")
	}
	return q.push(job{email: &msg})
}

// EnqueueWebhook queues w without blocking.
func (q *Queue) EnqueueWebhook(_ context.Context, w Webhook) error {
	if w.URL == "" {
		return errors.New("message: webhook without url")
	}
	return q.push(job{webhook: &w})
}

// Close stops intake and waits for queued jobs to finish.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	return q.g.Wait()
}

func (q *Queue) push(j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		return nil
	default:
		metrics.NotifyJobsTotal.WithLabelValues(j.kind(), "dropped").Inc()
		return ErrQueueFull
	}
}

// work drains jobs until Close closes the channel.
func (q *Queue) work(ctx context.Context) {
	for j := range q.jobs {
		q.run(ctx, j)
	}
}

func (q *Queue) run(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	var err error
	switch {
	case j.email != nil:
		err = q.mailer.Send(ctx, *j.email)
	case j.webhook != nil:
		err = q.post(ctx, *j.webhook)
	}

	if err != nil {
		metrics.NotifyJobsTotal.WithLabelValues(j.kind(), "error").Inc()
		q.log.Warnw("notification failed", "type", j.kind(), "err", err)
		return
	}
	metrics.NotifyJobsTotal.WithLabelValues(j.kind(), "ok").Inc()
}

func (q *Queue) post(ctx context.Context, w Webhook) error {
	method := w.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, w.URL, bytes.NewReader(w.Body))
	if err != nil {
		return err
	}
	for k, vs := range w.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: status %d", w.URL, resp.StatusCode)
	}
	return nil
}

func (j job) kind() string {
	if j.webhook != nil {
		return "webhook"
	}
	return "email"
}
