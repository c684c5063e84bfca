package utils

import (
	"fmt"
	"gradesync/config"
	"gradesync/ingest"
	"html"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// ReportMailer emails run summaries through SendGrid.
type ReportMailer struct {
	key  string
	host string
	from *sgmail.Email
	to   []*sgmail.Email
}

// NewReportMailer returns nil when reporting is not configured.
func NewReportMailer(cfg *config.Config) *ReportMailer {
	if !cfg.ReportingEnabled() {
		return nil
	}
	m := &ReportMailer{
		key:  cfg.SendGridAPIKey,
		host: sendGridHost,
		from: sgmail.NewEmail("gradesync", cfg.ReportEmailFrom),
	}
	for _, addr := range strings.Split(cfg.ReportEmailTo, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			m.to = append(m.to, sgmail.NewEmail("", addr))
		}
	}
	return m
}

// SendRunSummary mails the summary of one run. A nil mailer is a no-op.
func (m *ReportMailer) SendRunSummary(s *ingest.Summary) error {
	if m == nil {
		return nil
	}
	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(s))

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sending run summary")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid returned %d: %s", res.StatusCode, res.Body)
	}
	log.Printf("[EMAIL] Run summary %s sent to %d recipient(s)", s.RunID, len(m.to))
	return nil
}

func (m *ReportMailer) prepare(s *ingest.Summary) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = summarySubject(s)
	p.AddTos(m.to...)

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(
		sgmail.NewContent("text/plain", s.Report()),
		sgmail.NewContent("text/html", getEmailTemplate(p.Subject, summaryHTML(s))),
	)
	return msg
}

func summarySubject(s *ingest.Summary) string {
	if s.HasFailures() {
		return fmt.Sprintf("[gradesync] %d gradebook(s) failed to import", len(s.Failures))
	}
	return fmt.Sprintf("[gradesync] %d gradebook(s) imported", len(s.Ingested))
}

func summaryHTML(s *ingest.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="info-box">Run <b>%s</b>: %d discovered, %d ingested, %d skipped, %d failed</div>`,
		s.RunID, len(s.Discovered), len(s.Ingested), len(s.Skipped), len(s.Failures))
	if len(s.Failures) > 0 {
		b.WriteString("<h3>Failed</h3><ul>")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "<li><b>%s</b> (%s during %s): %s</li>",
				html.EscapeString(f.File), f.Kind(), f.Stage, html.EscapeString(fmt.Sprint(f.Err)))
		}
		b.WriteString("</ul>")
	}
	if len(s.Skipped) > 0 {
		b.WriteString("<h3>Skipped (already processed)</h3><ul>")
		for _, name := range s.Skipped {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(name))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

// HTML Wrapper for report emails
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #275D38; padding: 24px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 22px; letter-spacing: 1px; }
			.content { padding: 30px; color: #222222; line-height: 1.6; }
			.info-box { background: #EEF5EE; padding: 15px; border-radius: 4px; border-left: 4px solid #F2CD00; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>GRADESYNC</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
		</div>
	</body>
	</html>
	`, html.EscapeString(title), bodyContent)
}
