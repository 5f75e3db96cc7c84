package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	internal_utils "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/utils"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// HTML layout shared by every workflow email.
const emailLayoutHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f6f7f4; margin: 0; padding: 20px; }
  .container { max-width: 560px; margin: auto; background: #ffffff; border: 1px solid #e4e7df; border-radius: 8px; overflow: hidden; }
  .header { background-color: #1f5c4a; color: white; padding: 20px; text-align: center; }
  .header h1 { margin: 0; font-size: 22px; }
  .content { padding: 30px; text-align: left; }
  .button { display: inline-block; background-color: #1f5c4a; color: #ffffff; padding: 10px 18px; border-radius: 6px; text-decoration: none; }
  .footer { background-color: #f6f7f4; padding: 20px; text-align: center; font-size: 12px; color: #6c757d; }
  p { margin-bottom: 1em; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>{{.Heading}}</h1>
    </div>
    <div class="content">
      {{range .Paragraphs}}<p>{{.}}</p>
      {{end}}{{if .LinkURL}}<p><a class="button" href="{{.LinkURL}}">{{.LinkText}}</a></p>{{end}}
    </div>
    <div class="footer">
      &copy; {{.Year}} {{.Organization}}. Questions? Write to {{.SupportEmail}}.
    </div>
  </div>
</body>
</html>`

var emailLayout = template.Must(template.New("email").Parse(emailLayoutHTML))

// ------------------------------------------------------------------
// Outbound channels
// ------------------------------------------------------------------

type OutboundEmail struct {
	ToName    string
	ToEmail   string
	Subject   string
	PlainText string
	HTML      string
}

type Mailer interface {
	Send(ctx context.Context, msg OutboundEmail) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type sendGridMailer struct {
	client   *sendgrid.Client
	from     *mail.Email
	sandbox  bool
	disabled bool
}

// NewSendGridMailer sends through SendGrid. Without an API key every send
// is dropped with a warning so local runs work offline.
func NewSendGridMailer(cfg *config.Config) Mailer {
	return &sendGridMailer{
		client:   sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:     mail.NewEmail(cfg.OrganizationName, cfg.LDFlag_SendgridFromEmail),
		sandbox:  cfg.LDFlag_SendgridSandboxMode,
		disabled: cfg.SendGridAPIKey == "",
	}
}

func (m *sendGridMailer) Send(ctx context.Context, msg OutboundEmail) error {
	if m.disabled {
		utils.Logger.WithField("to", msg.ToEmail).Warn("SendGrid not configured; email dropped")
		return nil
	}
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.PlainText, msg.HTML)
	if m.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", utils.ErrExternalServiceFailure, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid status %d: %s", utils.ErrExternalServiceFailure, resp.StatusCode, resp.Body)
	}
	return nil
}

type twilioSender struct {
	client   *twilio.RestClient
	from     string
	disabled bool
}

func NewTwilioSender(cfg *config.Config) SMSSender {
	return &twilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		from:     cfg.LDFlag_TwilioFromPhone,
		disabled: cfg.TwilioAccountSID == "" || cfg.LDFlag_TwilioFromPhone == "",
	}
}

func (s *twilioSender) SendSMS(_ context.Context, to, body string) error {
	if s.disabled {
		utils.Logger.WithField("to", to).Warn("Twilio not configured; SMS dropped")
		return nil
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("%w: failed to send sms via twilio: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

// ------------------------------------------------------------------
// Service
// ------------------------------------------------------------------

// Notice is one workflow email. Paragraphs are escaped when rendered.
type Notice struct {
	ToName     string
	ToEmail    string
	Subject    string
	Heading    string
	Paragraphs []string
	LinkURL    string
	LinkText   string
}

type NotificationService struct {
	cfg     *config.Config
	mailer  Mailer
	sms     SMSSender
	metrics *internal_utils.Metrics
}

func NewNotificationService(cfg *config.Config, mailer Mailer, sms SMSSender, metrics *internal_utils.Metrics) *NotificationService {
	return &NotificationService{cfg: cfg, mailer: mailer, sms: sms, metrics: metrics}
}

// Notify renders and sends n. Failures are logged, never returned: a
// workflow step that already committed must not fail on email.
func (s *NotificationService) Notify(ctx context.Context, n Notice) {
	if n.ToEmail == "" {
		return
	}
	htmlBody, err := s.render(n)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to render notification email")
		return
	}
	err = s.mailer.Send(ctx, OutboundEmail{
		ToName:    n.ToName,
		ToEmail:   n.ToEmail,
		Subject:   n.Subject,
		PlainText: plainText(n),
		HTML:      htmlBody,
	})
	s.count(err)
	if err != nil {
		utils.Logger.WithError(err).WithField("subject", n.Subject).Error("Failed to send notification email")
	}
}

// NotifyAdmins sends n to the configured admin inbox.
func (s *NotificationService) NotifyAdmins(ctx context.Context, n Notice) {
	n.ToName = s.cfg.OrganizationName + " Admin"
	n.ToEmail = s.cfg.AdminInboxEmail
	s.Notify(ctx, n)
}

// SendRaw backs the send-email endpoint; unlike Notify it reports failures.
func (s *NotificationService) SendRaw(ctx context.Context, req dtos.SendEmailRequest) error {
	if req.HTML == nil && req.Text == nil {
		return utils.ValidationFailed("html or text is required", nil)
	}
	plain := utils.Val(req.Text)
	htmlBody := utils.Val(req.HTML)
	if htmlBody == "" {
		htmlBody = "<pre>" + template.HTMLEscapeString(plain) + "</pre>"
	}
	err := s.mailer.Send(ctx, OutboundEmail{
		ToName:    req.ToName,
		ToEmail:   req.To,
		Subject:   req.Subject,
		PlainText: plain,
		HTML:      htmlBody,
	})
	s.count(err)
	if err != nil {
		return utils.ExternalFailure("Email provider rejected the message", err)
	}
	return nil
}

// SMS sends a text when a number is on file. Failures are logged.
func (s *NotificationService) SMS(ctx context.Context, to *string, body string) {
	if to == nil || *to == "" {
		return
	}
	if err := s.sms.SendSMS(ctx, *to, body); err != nil {
		utils.Logger.WithError(err).Error("Failed to send SMS notification")
	}
}

func (s *NotificationService) render(n Notice) (string, error) {
	var buf bytes.Buffer
	err := emailLayout.Execute(&buf, struct {
		Notice
		Year         int
		Organization string
		SupportEmail string
	}{n, time.Now().Year(), s.cfg.OrganizationName, utils.SupportEmail})
	return buf.String(), err
}

func (s *NotificationService) count(err error) {
	if s.metrics == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	s.metrics.EmailsSent.WithLabelValues(result).Inc()
}

func plainText(n Notice) string {
	var b strings.Builder
	b.WriteString(n.Heading)
	b.WriteString("\n\n")
	for _, p := range n.Paragraphs {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	if n.LinkURL != "" {
		b.WriteString(n.LinkText + ": " + n.LinkURL + "\n\n")
	}
	b.WriteString("- The " + utils.OrganizationName + " Team")
	return b.String()
}
