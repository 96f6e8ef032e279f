package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// EmailContent is a rendered email.
type EmailContent struct {
	Subject string
	HTML    string
	Text    string
}

var templateFuncs = map[string]any{
	"humanize": humanize,
	"upper":    strings.ToUpper,
	"date":     func(data TemplateData) string { return data.SubmittedAt.Format("Jan 2, 2006") },
}

const emailLayout = `
{{define "head"}}<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Heading}}</title>
    <style>
      body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
      .container { max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background-color: {{.Accent}}; color: white; padding: 20px; text-align: center; }
      .content { padding: 20px; background-color: #f8f9fa; }
      .code { font-size: 32px; font-weight: bold; color: {{.Accent}}; text-align: center; padding: 20px;
              background-color: white; border: 2px dashed {{.Accent}}; margin: 20px 0; }
      .details { background-color: white; padding: 15px; border-left: 4px solid {{.Accent}}; margin: 15px 0; }
      .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header"><h1>{{.Heading}}</h1></div>
      <div class="content">
        <h2>Hello {{.Data.RecipientName}}!</h2>
{{end}}
{{define "foot"}}      </div>
      <div class="footer"><p>Complaint Management System</p></div>
    </div>
  </body>
</html>
{{end}}
{{define "verification"}}{{template "head" .}}
        <p>Thank you for registering with our Complaint Management System. Please verify your email address by entering the following verification code:</p>
        <div class="code">{{.Data.Code}}</div>
        <p>This code will expire in 10 minutes for security reasons.</p>
        <p>If you didn't create an account with us, please ignore this email.</p>
{{template "foot" .}}{{end}}
{{define "password_reset"}}{{template "head" .}}
        <p>We received a request to reset your password. Please use the following code to reset your password:</p>
        <div class="code">{{.Data.Code}}</div>
        <p>This code will expire in 10 minutes for security reasons.</p>
        <p>If you didn't request a password reset, please ignore this email and your password will remain unchanged.</p>
{{template "foot" .}}{{end}}
{{define "complaint"}}{{template "head" .}}
        <p>{{.Lead}}</p>
        <div class="details">
          <h3>Complaint Details</h3>
          <p><strong>Complaint ID:</strong> {{.Data.ComplaintID}}</p>
          <p><strong>Title:</strong> {{.Data.Title}}</p>
          <p><strong>Category:</strong> {{upper (humanize .Data.Category)}}</p>
          <p><strong>Status:</strong> {{humanize .Data.Status}}</p>
          <p><strong>Priority:</strong> {{upper .Data.Priority}}</p>
          {{if not .Data.SubmittedAt.IsZero}}<p><strong>Submitted:</strong> {{date .Data}}</p>{{end}}
          {{if .Data.UpdateMessage}}<p><strong>Update:</strong> {{.Data.UpdateMessage}}</p>{{end}}
        </div>
        <p>We'll keep you updated on the progress of your complaint. You can track your complaint status anytime using your complaint ID.</p>
{{template "foot" .}}{{end}}
{{define "complaint_created"}}{{template "complaint" .}}{{end}}
{{define "complaint_updated"}}{{template "complaint" .}}{{end}}
`

const emailText = `
{{define "verification"}}Hello {{.RecipientName}}! Your verification code is: {{.Code}}. This code will expire in 10 minutes.{{end}}
{{define "password_reset"}}Hello {{.RecipientName}}! Your password reset code is: {{.Code}}. This code will expire in 10 minutes.{{end}}
{{define "complaint_created"}}Hello {{.RecipientName}}! Your complaint {{.ComplaintID}} has been submitted. Current status: {{.Status}}{{end}}
{{define "complaint_updated"}}Hello {{.RecipientName}}! Your complaint {{.ComplaintID}} has been updated. Current status: {{.Status}}{{if .UpdateMessage}}
{{.UpdateMessage}}{{end}}{{end}}
`

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.New("email").Funcs(templateFuncs).Parse(emailLayout))
	textTemplates = texttemplate.Must(texttemplate.New("email").Funcs(templateFuncs).Parse(emailText))
)

type emailView struct {
	Heading string
	Accent  htmltemplate.CSS
	Lead    string
	Data    TemplateData
}

// RenderEmail produces the subject, HTML and plaintext bodies for kind.
func RenderEmail(kind TemplateKind, data TemplateData) (*EmailContent, error) {
	view := emailView{Data: data}
	var subject string
	switch kind {
	case KindVerification:
		subject, view.Heading, view.Accent = "Verify Your Email Address", "Email Verification", "#007bff"
	case KindPasswordReset:
		subject, view.Heading, view.Accent = "Password Reset Request", "Password Reset", "#dc3545"
	case KindComplaintCreated:
		subject = "New Complaint Submitted - " + data.ComplaintID
		view.Heading, view.Accent = "Complaint Submitted", "#28a745"
		view.Lead = "Your complaint has been successfully submitted and received."
	case KindComplaintUpdated:
		subject = "Complaint Update - " + data.ComplaintID
		view.Heading, view.Accent = "Complaint Updated", "#28a745"
		view.Lead = "There has been an update to your complaint."
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}

	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, string(kind), view); err != nil {
		return nil, fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, string(kind), data); err != nil {
		return nil, fmt.Errorf("render %s text: %w", kind, err)
	}
	return &EmailContent{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}

// RenderWhatsApp produces the emoji formatted chat message for kind.
func RenderWhatsApp(kind TemplateKind, data TemplateData) (string, error) {
	switch kind {
	case KindVerification:
		return fmt.Sprintf("Hello %s! 👋\n\n"+
			"Your verification code for Complaint Management System is:\n\n"+
			"*%s*\n\n"+
			"This code will expire in 10 minutes.\n\n"+
			"If you didn't request this code, please ignore this message.",
			data.RecipientName, data.Code), nil
	case KindPasswordReset:
		return fmt.Sprintf("Hello %s! 🔐\n\n"+
			"Your password reset code for Complaint Management System is:\n\n"+
			"*%s*\n\n"+
			"This code will expire in 10 minutes.\n\n"+
			"If you didn't request a password reset, please ignore this message.",
			data.RecipientName, data.Code), nil
	case KindComplaintCreated:
		return fmt.Sprintf("Hello %s! ✅\n\n"+
			"Your complaint has been successfully submitted.\n\n"+
			"📋 *Complaint Details:*\n"+
			"• ID: %s\n"+
			"• Title: %s\n"+
			"• Category: %s\n"+
			"• Status: %s\n"+
			"• Priority: %s\n\n"+
			"We'll keep you updated on the progress. Thank you for contacting us!",
			data.RecipientName, data.ComplaintID, data.Title, humanize(data.Category), data.Status, data.Priority), nil
	case KindComplaintUpdated:
		return fmt.Sprintf("Hello %s! 🔄\n\n"+
			"*Update on your complaint:*\n\n"+
			"📋 Complaint ID: %s\n"+
			"📝 Status: %s\n\n"+
			"💬 *Update:*\n%s\n\n"+
			"Thank you for your patience!",
			data.RecipientName, data.ComplaintID, data.Status, data.UpdateMessage), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
