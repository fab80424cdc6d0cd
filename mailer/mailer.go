// Package mailer is the email-delivery collaborator the engine hands a
// completed TestReport to. Concrete SMTP formatting stays minimal per
// spec.md's Non-goals — this is the interface boundary, not a templating
// engine.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/apitest-engine/apitestd/entity"
)

// Mailer sends a completed report's summary to recipients.
type Mailer interface {
	Send(report entity.TestReport, to []string) error
}

// SMTPMailer is the default net/smtp-based implementation.
type SMTPMailer struct {
	Config entity.EmailConfig
}

// Send formats a plain-text summary and dispatches it via smtp.SendMail,
// which upgrades to STARTTLS when the server offers it. EmailConfig.UseSSL
// and UseTLS are not read: implicit-TLS (SMTPS) connections are not made.
func (m SMTPMailer) Send(report entity.TestReport, to []string) error {
	if len(to) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}
	subject := fmt.Sprintf("Test report: %s", report.Name)
	body := fmt.Sprintf(
		"Report: %s\nStatus: %s\nPass rate: %.1f%% (%d/%d)\nFailed: %d\nErrored: %d\nDuration: %.3fs\n",
		report.Name, report.Status, report.PassRate(), report.Passed, report.Total, report.Failed, report.Error, report.DurationSeconds,
	)
	msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", strings.Join(to, ","), subject, body)

	addr := fmt.Sprintf("%s:%d", m.Config.Host, m.Config.Port)
	auth := smtp.PlainAuth("", m.Config.Username, m.Config.Password, m.Config.Host)
	return smtp.SendMail(addr, auth, m.Config.From, to, []byte(msg))
}
