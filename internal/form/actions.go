// internal/form/actions.go
//
// Lead forms: post-submit actions.
//
// Context
//   A FormDef lists actions to run after the lead is stored.  runActions
//   dispatches to runEmail or runWebhook, each of which queues work on the
//   Notifier so the HTTP response never waits on SMTP or the CRM.
//
//   Parameters come from the YAML action (to, subject, url) and fall back to
//   NotifyDefaults from config.  An action with no destination is skipped.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/leadsite/internal/message"
	"github.com/yanizio/leadsite/internal/transform"
)

// Notifier queues outbound messages.  *message.Queue satisfies it.
type Notifier interface {
	EnqueueEmail(ctx context.Context, msg message.Email) error
	EnqueueWebhook(ctx context.Context, w message.Webhook) error
}

// NotifyDefaults fill in destinations the YAML leaves out.
type NotifyDefaults struct {
	EmailTo    []string
	WebhookURL string
}

// runActions performs all declared actions.  Errors are logged, not
// returned, keeping the lead flow uninterrupted.
func (s *Submitter) runActions(ctx context.Context, log *zap.SugaredLogger, fd *FormDef, id string, data SanitizedFormData, c Client) {
	if s.notifier == nil || len(fd.Actions) == 0 {
		return
	}
	for _, ac := range fd.Actions {
		var err error
		switch ac.Type {
		case "email":
			err = s.runEmail(ctx, fd, ac.Params, id, data, c)
		case "webhook":
			err = s.runWebhook(ctx, fd, ac.Params, id, data)
		}
		if err != nil {
			log.Warnw("form action failed", "action", ac.Type, "err", err)
		}
	}
}

// -----------------------------------------------------------------------------
// Email action
// -----------------------------------------------------------------------------

func (s *Submitter) runEmail(ctx context.Context, fd *FormDef, p map[string]any, id string, data SanitizedFormData, c Client) error {
	to := stringList(p["to"])
	if len(to) == 0 {
		to = s.notify.EmailTo
	}
	if len(to) == 0 {
		return nil
	}

	subject, _ := p["subject"].(string)
	if subject == "" {
		subject = "New lead: " + fd.Title
	}
	replyTo, _ := data["email"].(string)

	return s.notifier.EnqueueEmail(ctx, message.Email{
		To:      to,
		ReplyTo: replyTo,
		Subject: subject,
		Text:    emailBody(fd, id, data, c),
	})
}

// emailBody lists fields in definition order as "Label: value" lines.
func emailBody(fd *FormDef, id string, data SanitizedFormData, c Client) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", fd.Title)
	for i := range fd.Fields {
		f := &fd.Fields[i]
		v, ok := data[f.Name]
		if !ok {
			continue
		}
		var val string
		switch t := v.(type) {
		case []string:
			val = strings.Join(t, ", ")
		default:
			val = fmt.Sprint(t)
		}
		if val == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Label, val)
	}
	fmt.Fprintf(&b, "\nReference: %s\n", id)
	if c.Country != "" {
		fmt.Fprintf(&b, "Country: %s\n", c.Country)
	}
	if c.IsBot {
		b.WriteString("Flagged: automated client\n")
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Webhook action
// -----------------------------------------------------------------------------

func (s *Submitter) runWebhook(ctx context.Context, fd *FormDef, p map[string]any, id string, data SanitizedFormData) error {
	url, _ := p["url"].(string)
	if url == "" {
		url = s.notify.WebhookURL
	}
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"form": fd.ID,
		"id":   id,
		"data": transform.CamelToSnake(map[string]any(data)),
	})
	if err != nil {
		return err
	}
	return s.notifier.EnqueueWebhook(ctx, message.Webhook{URL: url, Body: payload})
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
