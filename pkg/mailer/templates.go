package mailer

import (
	"bytes"
	"html/template"
	"time"
)

type Message struct {
	Subject string
	HTML    string
}

var codeTemplate = template.Must(template.New("code").Parse(`<p>Hi {{.Name}},</p>
<p>{{.Intro}}</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{.Code}}</b></p>
<p>The code expires in {{.Minutes}} minutes. If you did not request it you can ignore this email.</p>`))

type codeData struct {
	Name    string
	Intro   string
	Code    string
	Minutes int
}

func render(subject string, data codeData) (Message, error) {
	var buf bytes.Buffer
	if err := codeTemplate.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}

func VerificationEmail(name, code string, ttl time.Duration) (Message, error) {
	return render("Verify your email", codeData{
		Name:    name,
		Intro:   "Use this code to verify your email address:",
		Code:    code,
		Minutes: int(ttl.Minutes()),
	})
}

func PasswordResetEmail(name, code string, ttl time.Duration) (Message, error) {
	return render("Reset your password", codeData{
		Name:    name,
		Intro:   "Use this code to reset your password:",
		Code:    code,
		Minutes: int(ttl.Minutes()),
	})
}
