package message

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Email
}

func (m *recordingMailer) Send(_ context.Context, msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func TestQueue_DeliversEmailAndWebhook(t *testing.T) {
	var (
		mu   sync.Mutex
		body map[string]any
		ct   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(raw, &body)
		ct = r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	mailer := &recordingMailer{}
	q := NewQueue(context.Background(), Options{Mailer: mailer, Log: zap.NewNop().Sugar()})

	require.NoError(t, q.EnqueueEmail(context.Background(), Email{To: []string{"sales@example.com"}, Subject: "New lead"}))
	require.NoError(t, q.EnqueueWebhook(context.Background(), Webhook{URL: srv.URL, Body: []byte(`{"form":"contact"}`)}))
	require.NoError(t, q.Close())

	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, "New lead", mailer.sent[0].Subject)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "contact", body["form"])
	assert.Equal(t, "application/json", ct)
}

func TestQueue_RejectsAfterClose(t *testing.T) {
	q := NewQueue(context.Background(), Options{Log: zap.NewNop().Sugar()})
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.EnqueueEmail(context.Background(), Email{To: []string{"a@b.co"}}), ErrClosed)
	assert.NoError(t, q.Close())
}

func TestQueue_ValidatesJobs(t *testing.T) {
	q := NewQueue(context.Background(), Options{Log: zap.NewNop().Sugar()})
	defer q.Close()
	assert.Error(t, q.EnqueueEmail(context.Background(), Email{}))
	assert.Error(t, q.EnqueueWebhook(context.Background(), Webhook{}))
}

// blockingMailer holds every job until release is closed.
type blockingMailer struct{ release chan struct{} }

func (m blockingMailer) Send(ctx context.Context, _ Email) error {
	select {
	case <-m.release:
	case <-ctx.Done():
	}
	return nil
}

func TestQueue_FullBufferRejects(t *testing.T) {
	m := blockingMailer{release: make(chan struct{})}
	q := NewQueue(context.Background(), Options{Workers: 1, QueueSize: 1, Mailer: m, Log: zap.NewNop().Sugar()})

	msg := Email{To: []string{"a@b.co"}}
	var full bool
	for i := 0; i < 5; i++ {
		if err := q.EnqueueEmail(context.Background(), msg); err == ErrQueueFull {
			full = true
			break
		}
	}
	close(m.release)
	require.NoError(t, q.Close())
	assert.True(t, full, "expected ErrQueueFull with one worker and a one-slot buffer")
}

func TestQueue_DeliversAfterContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mailer := &recordingMailer{}
	q := NewQueue(ctx, Options{Mailer: mailer, Log: zap.NewNop().Sugar()})

	cancel()
	require.NoError(t, q.EnqueueEmail(context.Background(), Email{To: []string{"sales@example.com"}, Subject: "Late lead"}))
	require.NoError(t, q.Close())

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Late lead", mailer.sent[0].Subject)
}
