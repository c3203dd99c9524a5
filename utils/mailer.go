package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"kairos/config"
)

type EmailData struct {
	Subject   string
	To        []string
	Template  string
	Data      interface{}
	Year      int
	FromName  string
	FromEmail string
}

// Embedded email templates
var emailTemplates = map[string]string{
	"invitation": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .cta { display: inline-block; padding: 12px 24px; background: #3498db; color: #fff; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>You've been invited to a team</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>{{.InviterName}} has invited you to join the team <strong>{{.TeamName}}</strong> on Kairos as a {{.Role}}.</p>

        <p style="text-align: center; margin: 30px 0;">
            <a class="cta" href="{{.AcceptURL}}">Accept invitation</a>
        </p>

        <p>This invitation expires on {{.ExpiresAt}}.</p>
    </div>

    <div class="footer">
        <p>If you weren't expecting this invitation, you can safely ignore this email.</p>
        <p>© {{.Year}} Kairos. All rights reserved.</p>
    </div>
</body>
</html>`,
	"welcome": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Welcome to Kairos</h2>
    </div>

    <div class="content">
        <p>Hi {{.Name}},</p>
        <p>Your account is ready. Create a project, invite your team, and start planning.</p>
    </div>

    <div class="footer">
        <p>© {{.Year}} Kairos. All rights reserved.</p>
    </div>
</body>
</html>`,
}

func renderEmailTemplate(name string, data interface{}) (string, error) {
	tmplText, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template: %s", name)
	}

	tmpl, err := template.New(name).Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func sendEmail(to []string, subject, body string) error {
	cfg := config.AppConfig
	if cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.FromEmail)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return d.DialAndSend(m)
}

// SendInvitationEmail delivers a team invitation with its accept link
func SendInvitationEmail(to, inviterName, teamName, role, token string, expiresAt time.Time) error {
	subject := fmt.Sprintf("%s invited you to join %s on Kairos", inviterName, teamName)
	body, err := renderEmailTemplate("invitation", map[string]interface{}{
		"Subject":     subject,
		"InviterName": inviterName,
		"TeamName":    teamName,
		"Role":        role,
		"AcceptURL":   fmt.Sprintf("%s/invitations/accept?token=%s", config.AppConfig.FrontendURL, token),
		"ExpiresAt":   expiresAt.Format("January 2, 2006"),
		"Year":        time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return sendEmail([]string{to}, subject, body)
}

// SendWelcomeEmail greets a newly registered user
func SendWelcomeEmail(to, name string) error {
	subject := "Welcome to Kairos"
	body, err := renderEmailTemplate("welcome", map[string]interface{}{
		"Subject": subject,
		"Name":    name,
		"Year":    time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return sendEmail([]string{to}, subject, body)
}
