package service

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/hbotberlin/reservations/internal/domain"
	"github.com/hbotberlin/reservations/internal/platform/mailer"
	"github.com/hbotberlin/reservations/pkg/config"
)

const (
	operatorSubject = "Neue Reservierung – Rejuvenation 90"
	customerSubject = "Ihre Reservierungsanfrage bei HBOT Berlin"
)

var (
	brPattern  = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern = regexp.MustCompile(`<[^>]+>`)
)

// buildOperatorEmail renders the notification the studio receives. Every
// submitted value is HTML-escaped before it reaches the body.
func buildOperatorEmail(cfg config.EmailConfig, r *domain.Reservation, sourceIP string) *mailer.Message {
	week := r.StartWeek
	if week == "" {
		week = "—"
	}
	consent := "nein"
	if r.Consent {
		consent = "ja"
	}

	msg := strings.ReplaceAll(html.EscapeString(r.Message), "\n", "<br/>")

	body := fmt.Sprintf(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial">
<h2>Neue Reservierung (Website)</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>E-Mail:</strong> %s</p>
<p><strong>Telefon:</strong> %s</p>
<p><strong>Startwoche:</strong> %s</p>
<p><strong>Nachricht:</strong><br/>%s</p>
<hr/>
<p style="color:#64748b;font-size:12px">IP: %s · Einwilligung: %s</p>
</div>`,
		html.EscapeString(r.Name),
		html.EscapeString(r.Email),
		html.EscapeString(r.Phone),
		html.EscapeString(week),
		msg,
		html.EscapeString(sourceIP),
		consent,
	)

	return &mailer.Message{
		FromName:  cfg.FromAdmin.Name,
		FromEmail: cfg.FromAdmin.Email,
		ToEmail:   cfg.OperatorTo,
		ReplyTo:   r.Email,
		Subject:   operatorSubject,
		HTML:      body,
		Text:      stripHTML(body),
	}
}

// buildCustomerEmail renders the acknowledgment sent back to the submitter,
// summarizing what they sent us. Same escaping rules as the operator notice.
func buildCustomerEmail(cfg config.EmailConfig, r *domain.Reservation) *mailer.Message {
	week := r.StartWeek
	if week == "" {
		week = "noch offen"
	}
	phone := r.Phone
	if phone == "" {
		phone = "—"
	}
	message := "—"
	if r.Message != "" {
		message = strings.ReplaceAll(html.EscapeString(r.Message), "\n", "<br/>")
	}

	body := fmt.Sprintf(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial">
<h2>Vielen Dank für Ihre Reservierungsanfrage</h2>
<p>Hallo %s,</p>
<p>wir haben Ihre Anfrage erhalten und melden uns in Kürze bei Ihnen.</p>
<p><strong>Ihre Angaben:</strong><br/>
<strong>Name:</strong> %s<br/>
<strong>E-Mail:</strong> %s<br/>
<strong>Telefon:</strong> %s<br/>
<strong>Gewünschte Startwoche:</strong> %s</p>
<p><strong>Ihre Nachricht:</strong><br/>%s</p>
<p>Wenn Sie Fragen haben, antworten Sie einfach auf diese E-Mail.</p>
<p>Ihr HBOT Berlin Team</p>
</div>`,
		html.EscapeString(r.Name),
		html.EscapeString(r.Name),
		html.EscapeString(r.Email),
		html.EscapeString(phone),
		html.EscapeString(week),
		message,
	)

	return &mailer.Message{
		FromName:  cfg.FromUser.Name,
		FromEmail: cfg.FromUser.Email,
		ToName:    r.Name,
		ToEmail:   r.Email,
		ReplyTo:   cfg.OperatorTo,
		Subject:   customerSubject,
		HTML:      body,
		Text:      stripHTML(body),
	}
}

// stripHTML derives the plain-text body from the HTML one.
func stripHTML(s string) string {
	s = brPattern.ReplaceAllString(s, "\n")
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}
