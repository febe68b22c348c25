// Package notify turns classified violations into SES-ready email
// messages.
package notify

import (
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/opsvector/breach-alert-app/internal/config"
	"github.com/opsvector/breach-alert-app/internal/helpers"
	"github.com/opsvector/breach-alert-app/internal/models"
)

// Message is a fully rendered notification ready for delivery.
type Message struct {
	Subject  string
	HTMLBody string
}

// Composer renders alert emails from an event and its violations.
type Composer struct {
	logger *slog.Logger
	cfg    *config.Config
}

// Option operates on Composer, enabling pre-initialisation configuration.
type Option func(*Composer)

// WithLogger sets the logger used by the composer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// New returns a Composer bound to the given configuration.
func New(cfg *config.Config, opts ...Option) *Composer {
	_inst := &Composer{
		logger: helpers.NewNoopLogger(),
		cfg:    cfg,
	}

	for _, opt := range opts {
		opt(_inst)
	}

	_inst.logger = _inst.logger.With("component", "notify")

	return _inst
}

type bodyRow struct {
	Label string
	Value string
}

type bodyData struct {
	Titles       string
	MetaRows     []bodyRow
	ResourceRows []bodyRow
}

var bodyTemplate = template.Must(template.New("alert").Parse(`
<html>
<head><title>AWS Security Alert</title></head>
<body style="font-family:'Helvetica Neue',Helvetica,Arial,sans-serif;margin:0;padding:20px;background-color:#f6f4f4">
  <table style="width:600px;margin:0 auto;background-color:white;border-collapse:collapse">
    <tr>
      <td style="padding:25px 35px">
        <table style="width:100%;border-collapse:collapse">
          <tr>
            <td style="width:80%">
              <h2 style="color:#343b41;margin:0">[Alerting] Security Breach Notification</h2>
            </td>
            <td style="width:20%;text-align:right">
              <img src="https://cdn-icons-png.flaticon.com/512/18266/18266546.png" height="60" width="60" />
            </td>
          </tr>
        </table>

        <pre style="font-family:'Helvetica Neue',Helvetica,Arial,sans-serif;font-size:16px;line-height:1.5;white-space:pre-wrap;word-wrap:break-word">{{.Titles}}</pre>

        <table style="width:100%;border:1px solid black;border-collapse:collapse;margin-top:20px">
          <tr><th colspan="2" style="font-weight:bold;border:1px solid black;padding:8px;background-color:#f0f0f0">Event Details</th></tr>
{{- range .MetaRows}}
          <tr><td style="font-weight:normal;border:1px solid black;padding:5px">{{.Label}}</td><td style="font-weight:normal;border:1px solid black;padding:5px" align="right">{{.Value}}</td></tr>
{{- end}}
        </table>

        <table style="width:100%;border:1px solid black;border-collapse:collapse;margin-top:20px">
          <tr><th colspan="2" style="font-weight:bold;border:1px solid black;padding:8px;background-color:#f0f0f0">Resource Details</th></tr>
{{- range .ResourceRows}}
          <tr><td style="font-weight:normal;border:1px solid black;padding:5px">{{.Label}}</td><td style="font-weight:normal;border:1px solid black;padding:5px" align="right">{{.Value}}</td></tr>
{{- end}}
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

// Compose renders the subject and HTML body for an event and its
// violations. The caller guarantees a non-empty violation list.
func (c *Composer) Compose(event *models.Event, violations []models.Violation) (Message, error) {
	titles := make([]string, 0, len(violations))
	for _, v := range violations {
		title := v.Title
		if title == "" {
			title = fmt.Sprintf("Event %s detected", event.Detail.EventName)
		}
		titles = append(titles, title)
	}
	joined := strings.Join(titles, "\n")

	data := bodyData{
		Titles: joined,
		MetaRows: []bodyRow{
			{"AWS Account ID", event.Detail.UserIdentity.AccountID},
			{"AWS Account Name", c.cfg.Account.Label},
			{"User", event.Actor()},
			{"User Type", userType(event)},
			{"Event Region", event.Detail.AWSRegion},
			{"Event Name", event.Detail.EventName},
			{"Event Time", event.Time.Format(time.RFC3339)},
			{"Event ID", event.ID},
		},
	}
	for _, v := range violations {
		for _, attr := range v.Attributes {
			data.ResourceRows = append(data.ResourceRows, bodyRow{
				Label: helpers.Labelize(attr.Name),
				Value: attr.Value,
			})
		}
	}

	var body strings.Builder
	if err := bodyTemplate.Execute(&body, data); err != nil {
		return Message{}, errors.Wrap(err, "rendering alert body")
	}

	return Message{
		Subject:  c.subject(event, joined),
		HTMLBody: body.String(),
	}, nil
}

// Recipients returns the configured recipients plus the acting user,
// unless the actor is the root principal.
func (c *Composer) Recipients(event *models.Event) []string {
	recipients := make([]string, 0, len(c.cfg.Alerting.Recipients)+1)
	seen := make(map[string]struct{})
	for _, r := range c.cfg.Alerting.Recipients {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		recipients = append(recipients, r)
	}
	if actor := event.Actor(); actor != "Root" && actor != "" {
		if _, ok := seen[actor]; !ok {
			recipients = append(recipients, actor)
		}
	}
	return recipients
}

func (c *Composer) subject(event *models.Event, titles string) string {
	label := c.cfg.Account.Label
	account := event.Detail.UserIdentity.AccountID
	name := event.Detail.EventName
	for _, info := range c.cfg.Alerting.InfoEvents {
		if name == info {
			return fmt.Sprintf("AWS Security | %s | %s | %s | %s", titles, name, label, account)
		}
	}
	return fmt.Sprintf("AWS Security Breach | %s | %s | %s", name, label, account)
}

func userType(event *models.Event) string {
	if event.Detail.UserIdentity.Type == "" {
		return "Unknown"
	}
	return event.Detail.UserIdentity.Type
}
