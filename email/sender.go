package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// SendEvent renders and delivers one detected event to a single recipient.
// token identifies the recipient's preference record for unsubscribe links.
func (s *Sender) SendEvent(ctx context.Context, to, token string, svc *status.ServiceConfig, ev status.Event) error {
	subject := s.subjectFor(svc, ev)
	msg := &Message{
		To:      to,
		Subject: subject,
		HTML:    s.formatEventBody(svc, ev, token),
		Text:    s.formatEventText(svc, ev),
		Headers: s.unsubscribeHeaders(token),
	}

	s.logger.Info("Sending notification email",
		"to", to,
		"slug", svc.Slug,
		"kind", ev.Kind(),
		"subject", subject)

	return s.provider.Send(ctx, msg)
}

func (s *Sender) unsubscribeHeaders(token string) map[string]string {
	unsubURL := fmt.Sprintf("%s/preferences?token=%s&unsubscribe=1", s.baseURL, url.QueryEscape(token))
	return map[string]string{
		"List-Unsubscribe":      fmt.Sprintf("<%s>", unsubURL),
		"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
	}
}

func (s *Sender) subjectFor(svc *status.ServiceConfig, ev status.Event) string {
	switch e := ev.(type) {
	case status.StatusChanged:
		return fmt.Sprintf("%s is now %s", svc.Name, e.New.Label())
	case status.IncidentOpened:
		return fmt.Sprintf("%s incident: %s", svc.Name, e.Incident.Title)
	case status.IncidentStatusChanged:
		return fmt.Sprintf("%s incident update: %s", svc.Name, e.New)
	case status.IncidentResolved:
		return fmt.Sprintf("%s incident resolved", svc.Name)
	default:
		return fmt.Sprintf("%s status update", svc.Name)
	}
}

func (s *Sender) formatEventText(svc *status.ServiceConfig, ev status.Event) string {
	var b strings.Builder
	switch e := ev.(type) {
	case status.StatusChanged:
		fmt.Fprintf(&b, "%s changed status: %s -> %s\n", svc.Name, e.Old.Label(), e.New.Label())
	case status.IncidentOpened:
		fmt.Fprintf(&b, "New incident on %s: %s (impact: %s, status: %s)\n",
			svc.Name, e.Incident.Title, e.Incident.Impact, e.Incident.Status)
	case status.IncidentStatusChanged:
		fmt.Fprintf(&b, "Incident on %s moved from %s to %s", svc.Name, e.Old, e.New)
		if e.Title != "" {
			fmt.Fprintf(&b, ": %s", e.Title)
		}
		b.WriteString("\n")
	case status.IncidentResolved:
		fmt.Fprintf(&b, "Incident on %s has been resolved", svc.Name)
		if e.Title != "" {
			fmt.Fprintf(&b, ": %s", e.Title)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nStatus page: %s\n", svc.BaseURL)
	return b.String()
}

func (s *Sender) formatEventBody(svc *status.ServiceConfig, ev status.Event, token string) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background: #fff; }\n")
	b.WriteString(".header { border-bottom: 2px solid #2c7be5; padding-bottom: 10px; margin-bottom: 20px; }\n")
	b.WriteString(".transition { background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 15px 0; font-size: 1.1em; }\n")
	b.WriteString(".severity-major_outage { border-left: 4px solid #c0392b; }\n")
	b.WriteString(".severity-partial_outage { border-left: 4px solid #e67e22; }\n")
	b.WriteString(".severity-degraded { border-left: 4px solid #f1c40f; }\n")
	b.WriteString(".severity-maintenance { border-left: 4px solid #3498db; }\n")
	b.WriteString(".severity-operational { border-left: 4px solid #27ae60; }\n")
	b.WriteString(".incident { color: #555; margin: 10px 0; }\n")
	b.WriteString(".footer { margin-top: 30px; padding-top: 15px; border-top: 1px solid #ddd; font-size: 0.9em; color: #7f8c8d; }\n")
	b.WriteString("a { color: #2c7be5; text-decoration: none; }\n")
	b.WriteString("a:hover { text-decoration: underline; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString("<div class=\"header\">\n")
	b.WriteString(fmt.Sprintf("<h2>%s</h2>\n", escapeHTML(svc.Name)))
	b.WriteString("</div>\n")

	sevClass := fmt.Sprintf("transition severity-%s", ev.Severity())
	b.WriteString(fmt.Sprintf("<div class=\"%s\">\n", sevClass))
	switch e := ev.(type) {
	case status.StatusChanged:
		b.WriteString(fmt.Sprintf("<p><strong>%s</strong> &rarr; <strong>%s</strong></p>\n",
			escapeHTML(e.Old.Label()), escapeHTML(e.New.Label())))
	case status.IncidentOpened:
		b.WriteString("<p><strong>New incident</strong></p>\n")
		b.WriteString(fmt.Sprintf("<p class=\"incident\">%s</p>\n", escapeHTML(e.Incident.Title)))
		b.WriteString(fmt.Sprintf("<p>Impact: %s &bull; Status: %s</p>\n",
			escapeHTML(string(e.Incident.Impact)), escapeHTML(string(e.Incident.Status))))
	case status.IncidentStatusChanged:
		b.WriteString(fmt.Sprintf("<p><strong>Incident update:</strong> %s &rarr; %s</p>\n",
			escapeHTML(string(e.Old)), escapeHTML(string(e.New))))
		if e.Title != "" {
			b.WriteString(fmt.Sprintf("<p class=\"incident\">%s</p>\n", escapeHTML(e.Title)))
		}
	case status.IncidentResolved:
		b.WriteString("<p><strong>Incident resolved</strong></p>\n")
		if e.Title != "" {
			b.WriteString(fmt.Sprintf("<p class=\"incident\">%s</p>\n", escapeHTML(e.Title)))
		}
	}
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"footer\">\n")
	b.WriteString(fmt.Sprintf("<a href=\"%s\">View status page</a>\n", escapeHTML(svc.BaseURL)))
	b.WriteString(" &bull; \n")
	prefsURL := fmt.Sprintf("%s/preferences?token=%s", s.baseURL, url.QueryEscape(token))
	b.WriteString(fmt.Sprintf("<a href=\"%s\">Notification preferences</a>\n", escapeHTML(prefsURL)))
	b.WriteString("</div>\n")

	b.WriteString("</body>\n</html>")

	return b.String()
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
