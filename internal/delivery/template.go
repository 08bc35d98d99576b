package delivery

import (
	"bytes"
	"html/template"

	"gazette/internal/logger"
)

// emailShell wraps the model-authored HTML in a minimal responsive frame so
// every outgoing email shares the same masthead and footer.
const emailShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f8fafc;font-family:-apple-system,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;">
<div style="max-width:600px;margin:0 auto;padding:24px;">
<div style="background-color:#2563eb;color:#ffffff;padding:16px 24px;border-radius:8px 8px 0 0;">
<h1 style="margin:0;font-size:20px;">Gazette</h1>
</div>
<div style="background-color:#ffffff;padding:24px;border:1px solid #e2e8f0;border-top:none;border-radius:0 0 8px 8px;color:#1e293b;">
{{.Body}}
</div>
<p style="color:#64748b;font-size:12px;text-align:center;margin-top:16px;">
You are receiving this email because you have a Gazette account.
</p>
</div>
</body>
</html>`

var emailTemplate = template.Must(template.New("email").Parse(emailShell))

// WrapHTML renders the shared email frame around a campaign body. The body
// comes from the model and is inserted as-is; on a template error the bare
// body is sent instead of nothing.
func WrapHTML(title, body string) string {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(body),
	})
	if err != nil {
		logger.Warn("Failed to render email shell", "error", err.Error())
		return body
	}
	return buf.String()
}
