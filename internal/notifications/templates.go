package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"rentcar/pkg/mailer"
	"rentcar/pkg/model"
)

const signature = "CV-Natchy Rental Car Booking team"

const layoutHTML = `{{define "layout"}}<html>
<head>
<style>
body { font-family: Arial, sans-serif; font-size: 16px; line-height: 1.6; margin: 40px auto; max-width: 600px; color: #333333; }
h3 { font-size: 24px; margin-bottom: 20px; color: #333333; }
p { margin-bottom: 20px; color: #666666; }
.signature { margin-top: 20px; font-style: italic; }
.highlight { font-weight: bold; }
</style>
</head>
<body>
<h3>Dear {{if .Name}}{{.Name}}{{else}}user{{end}},</h3>
{{template "content" .}}
<p class="signature">Best regards,<br>{{.Signature}}</p>
</body>
</html>{{end}}`

type templateSpec struct {
	subject string
	html    string
	text    string
}

var specs = map[model.NotificationKind]templateSpec{
	model.NotificationVerificationCode: {
		subject: "Email Verification OTP",
		html:    `{{define "content"}}<p>Your OTP is: <span class="highlight">{{.Data.otp}}</span></p>
<p>Please use this OTP to verify your email address. It expires on {{.Data.expires_at}}.</p>{{end}}`,
		text: "Your OTP is: {{.Data.otp}}\nPlease use this OTP to verify your email address. It expires on {{.Data.expires_at}}.\n",
	},
	model.NotificationPasswordReset: {
		subject: "Password Reset Request",
		html:    `{{define "content"}}<p>You are receiving this email because a password reset was requested for your account.</p>
<p><a href="{{.Data.reset_url}}">Reset your password</a></p>
<p>The link expires on {{.Data.expires_at}}. If you did not request it, you can ignore this email.</p>{{end}}`,
		text: "A password reset was requested for your account.\nReset your password: {{.Data.reset_url}}\nThe link expires on {{.Data.expires_at}}.\n",
	},
	model.NotificationBookingCreated: {
		subject: "Booking Confirmation",
		html:    `{{define "content"}}<p>Your booking of <span class="highlight">{{.Data.car_name}}</span> on <span class="highlight">{{.Data.appt_date}}</span> is confirmed.</p>
<p>Pick-up address: {{.Data.car_address}}<br>Contact: {{.Data.car_tel}}</p>
<p>Booking reference: {{.Data.booking_id}}</p>{{end}}`,
		text: "Your booking of {{.Data.car_name}} on {{.Data.appt_date}} is confirmed.\nPick-up address: {{.Data.car_address}}\nContact: {{.Data.car_tel}}\nBooking reference: {{.Data.booking_id}}\n",
	},
	model.NotificationBookingUpdated: {
		subject: "Booking Updated",
		html:    `{{define "content"}}<p>Your booking {{.Data.booking_id}} now reserves <span class="highlight">{{.Data.car_name}}</span> on <span class="highlight">{{.Data.appt_date}}</span>.</p>
<p>Pick-up address: {{.Data.car_address}}<br>Contact: {{.Data.car_tel}}</p>{{end}}`,
		text: "Your booking {{.Data.booking_id}} now reserves {{.Data.car_name}} on {{.Data.appt_date}}.\nPick-up address: {{.Data.car_address}}\nContact: {{.Data.car_tel}}\n",
	},
	model.NotificationBookingCancelled: {
		subject: "Booking Cancelled",
		html:    `{{define "content"}}<p>Your booking {{.Data.booking_id}}{{if .Data.car_name}} of {{.Data.car_name}}{{end}} on <span class="highlight">{{.Data.appt_date}}</span> has been cancelled.</p>{{end}}`,
		text: "Your booking {{.Data.booking_id}}{{if .Data.car_name}} of {{.Data.car_name}}{{end}} on {{.Data.appt_date}} has been cancelled.\n",
	},
}

type compiled struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// Renderer turns notifications into e-mails.
type Renderer struct {
	templates map[model.NotificationKind]compiled
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[model.NotificationKind]compiled, len(specs))}

	for kind, spec := range specs {
		html, err := htmltemplate.New(string(kind)).Option("missingkey=zero").Parse(layoutHTML)
		if err == nil {
			_, err = html.Parse(spec.html)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse html template %s: %w", kind, err)
		}

		text, err := texttemplate.New(string(kind)).Option("missingkey=zero").Parse(spec.text + "\nBest regards,\n{{.Signature}}\n")
		if err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", kind, err)
		}

		r.templates[kind] = compiled{subject: spec.subject, html: html, text: text}
	}
	return r, nil
}

type view struct {
	Name      string
	Data      map[string]string
	Signature string
}

// ErrUnknownKind is returned for notifications no template exists for.
type ErrUnknownKind struct {
	Kind model.NotificationKind
}

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("no template for notification kind %q", e.Kind)
}

func (r *Renderer) Render(n *model.Notification) (mailer.Email, error) {
	tpl, ok := r.templates[n.Kind]
	if !ok {
		return mailer.Email{}, ErrUnknownKind{Kind: n.Kind}
	}

	v := view{Name: n.Name, Data: n.Data, Signature: signature}
	if v.Data == nil {
		v.Data = map[string]string{}
	}

	var html, text bytes.Buffer
	if err := tpl.html.ExecuteTemplate(&html, "layout", v); err != nil {
		return mailer.Email{}, fmt.Errorf("failed to render %s html: %w", n.Kind, err)
	}
	if err := tpl.text.Execute(&text, v); err != nil {
		return mailer.Email{}, fmt.Errorf("failed to render %s text: %w", n.Kind, err)
	}

	return mailer.Email{
		To:       n.To,
		Subject:  tpl.subject,
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}
