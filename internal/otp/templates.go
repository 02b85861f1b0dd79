package otp

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

type codeEmail struct {
	AppName   string
	Name      string
	Code      string
	Minutes   int
	ExpiresAt string
	Heading   string
	Intro     string
	LinkURL   string
	LinkLabel string
}

const codeHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background:#f4f6f8; padding:24px;">
  <div style="max-width:520px; margin:0 auto; background:#ffffff; border-radius:8px; padding:32px;">
    <h2 style="color:#1f3b73; margin-top:0;">{{.Heading}}</h2>
    <p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
    <p>{{.Intro}}</p>
    <p style="font-size:32px; letter-spacing:8px; font-weight:bold; text-align:center; color:#1f3b73;">{{.Code}}</p>
    <p>This code expires in {{.Minutes}} minutes (at {{.ExpiresAt}}).</p>
    {{if .LinkURL}}<p><a href="{{.LinkURL}}">{{.LinkLabel}}</a></p>{{end}}
    <p style="color:#888; font-size:12px;">If you did not request this, you can ignore this email.</p>
    <p style="color:#888; font-size:12px;">{{.AppName}}</p>
  </div>
</body>
</html>`

const codeText = `{{.Heading}}

Hello {{if .Name}}{{.Name}}{{else}}there{{end}},

{{.Intro}}

Your code: {{.Code}}

This code expires in {{.Minutes}} minutes (at {{.ExpiresAt}}).
{{if .LinkURL}}
{{.LinkLabel}}: {{.LinkURL}}
{{end}}
If you did not request this, you can ignore this email.
{{.AppName}}
`

type loginNotice struct {
	AppName string
	Name    string
	Role    string
	At      string
	IP      string
}

const loginHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; padding:24px;">
  <h3 style="color:#1f3b73;">New sign-in to your {{.AppName}} account</h3>
  <p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
  <p>Your {{.Role}} account was signed in at {{.At}}{{if .IP}} from {{.IP}}{{end}}.</p>
  <p>If this was not you, reset your password immediately.</p>
</body>
</html>`

const loginText = `New sign-in to your {{.AppName}} account

Hello {{if .Name}}{{.Name}}{{else}}there{{end}},

Your {{.Role}} account was signed in at {{.At}}{{if .IP}} from {{.IP}}{{end}}.
If this was not you, reset your password immediately.
`

var (
	codeHTMLTmpl  = htmltemplate.Must(htmltemplate.New("code.html").Parse(codeHTML))
	codeTextTmpl  = texttemplate.Must(texttemplate.New("code.txt").Parse(codeText))
	loginHTMLTmpl = htmltemplate.Must(htmltemplate.New("login.html").Parse(loginHTML))
	loginTextTmpl = texttemplate.Must(texttemplate.New("login.txt").Parse(loginText))
)

const timeLayout = "2006-01-02 15:04 MST"

// render executes an HTML/text template pair against the same data.
func render(h *htmltemplate.Template, t *texttemplate.Template, data interface{}) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
