// Package email delivers templated notification mail over SMTP.
// Delivery is best-effort: the invitation row is the durable fact and a
// failed send only produces a log entry.
package email

import (
	"io/ioutil"

	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/rs/zerolog/log"
	mail "github.com/xhit/go-simple-mail/v2"
)

var subjects = map[string]string{
	"community-invitation": "You have been invited to join {{community}}",
	"event-invitation":     "You are invited to {{event}}",
	"event-reminder":       "Reminder: RSVP for {{event}}",
}

type Notifier struct {
	client      *mail.SMTPClient
	from        string
	templateDir string
}

func NewNotifier(config *config.Config, client *mail.SMTPClient) *Notifier {
	return &Notifier{
		client:      client,
		from:        config.EmailConfig.SmtpUser,
		templateDir: config.EmailConfig.TemplateDir,
	}
}

// Render loads the named HTML template and substitutes every {{var}}.
func (n *Notifier) Render(templateName string, vars map[string]string) (string, error) {
	file, err := ioutil.ReadFile(n.templateDir + templateName + ".html")
	if err != nil {
		return "", err
	}

	return utils.Format(string(file), vars), nil
}

// Subject builds the subject line for a template, falling back to the
// app name when the template is unknown.
func (n *Notifier) Subject(templateName string, vars map[string]string) string {
	subject, ok := subjects[templateName]
	if !ok {
		subject = "Notification"
	}
	return utils.Format(subject, vars)
}

// SendTemplate renders and sends one message, reporting success. It
// never returns an error; failures are logged and counted by callers.
func (n *Notifier) SendTemplate(to, templateName string, vars map[string]string) bool {
	body, err := n.Render(templateName, vars)
	if err != nil {
		log.Error().Err(err).Str("template", templateName).Msg("Could not render email template")
		return false
	}

	msg := mail.NewMSG()
	msg.SetFrom(n.from).AddTo(to).SetSubject(n.Subject(templateName, vars)).SetBody(mail.TextHTML, body)
	if msg.Error != nil {
		log.Error().Err(msg.Error).Str("to", to).Msg("Could not build email")
		return false
	}

	if err := msg.Send(n.client); err != nil {
		log.Warn().Err(err).Str("to", to).Str("template", templateName).Msg("Email delivery failed")
		return false
	}

	return true
}
