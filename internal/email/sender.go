package email

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"smilyweb/config"
)

var resetTemplate = template.Must(template.New("password_reset").Parse(
	`<p>click the given link to reset your password <br>
    <a href="{{.Link}}">{{.Link}}</a>
</p>`))

// Sender delivers transactional mail through the configured SMTP relay.
// Delivery is fire-and-forget from the domain's perspective: a failure
// surfaces to the caller, there are no retries here.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(cfg *config.Config) *Sender {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &Sender{
		dialer: dialer,
		from:   cfg.SMTPFrom,
	}
}

func (s *Sender) SendPasswordResetEmail(to, link string) error {
	body, err := renderResetBody(link)
	if err != nil {
		return fmt.Errorf("failed to render reset mail: %w", err)
	}
	return s.send(to, "click on the link to reset your password", body)
}

func (s *Sender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	return s.dialer.DialAndSend(m)
}

func renderResetBody(link string) (string, error) {
	buf := new(bytes.Buffer)
	if err := resetTemplate.Execute(buf, map[string]string{"Link": link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
