package mailer

import (
	"fmt"
	"time"

	mailtpl "github.com/ryowuandjanet/go-user-auth/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "reset_password"
	Data     map[string]any `json:"data,omitempty"`
}

// NewResetPasswordJob builds the job for a password reset email.
func NewResetPasswordJob(appName, to, resetURL string, ttl time.Duration) EmailJob {
	return EmailJob{
		To:       to,
		Template: mailtpl.ResetPassword,
		Data:     mailtpl.NewResetPasswordData(appName, to, resetURL, mailtpl.WithExpiresIn(ttl)),
	}
}

// Message renders the job into a ready-to-send message.
// Explicit Subject/Text/HTML are used as-is when no template is set.
func (j EmailJob) Message() (Message, error) {
	if j.To == "" {
		return Message{}, ErrNoRecipient
	}
	msg := Message{To: j.To, Subject: j.Subject, Text: j.Text, HTML: j.HTML}
	if j.Template == "" {
		return msg, nil
	}
	data := make(map[string]any, len(j.Data)+1)
	for k, v := range j.Data {
		data[k] = v
	}
	if _, ok := data["RecipientEmail"]; !ok {
		data["RecipientEmail"] = j.To
	}
	s, t, h, err := mailtpl.Render(j.Template, data)
	if err != nil {
		return Message{}, fmt.Errorf("render %s: %w", j.Template, err)
	}
	msg.Subject, msg.Text, msg.HTML = s, t, h
	return msg, nil
}
