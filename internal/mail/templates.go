package mail

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const (
	SubjectReportUser  = "Ihr persönlicher KI-Status-Report ist fertig"
	SubjectReportAdmin = "Kopie: KI-Status-Report (inkl. Briefing)"
	SubjectLoginCode   = "Dein Login-Code – KI-Sicherheit.jetzt"
)

const layout = `<!doctype html>
<html lang="de">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%[1]s</title>
<style>
body{font-family:-apple-system,Segoe UI,Roboto,Arial,sans-serif;color:#0f172a;line-height:1.5;margin:0;padding:0;background:#f6f9ff}
.wrap{max-width:640px;margin:0 auto;padding:24px}
.card{background:#fff;border:1px solid #e6edf3;border-radius:12px;padding:18px}
h1{color:#0b3b8f;font-size:20px;margin:0 0 8px}
p{margin:8px 0;font-size:14px}
.muted{color:#64748b}
.code{font-size:28px;letter-spacing:6px;font-weight:700}
</style>
</head>
<body><div class="wrap"><div class="card">
<h1>%[1]s</h1>
%[2]s
<p class="muted">Hinweis: Diese E-Mail wurde automatisch erzeugt.</p>
</div></div></body>
</html>`

// Audience selects the report email variant.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

// ReportReady builds the notification sent once a report PDF exists.
// pdfURL may be empty when the PDF is attached instead.
func ReportReady(aud Audience, to []string, pdfURL string) Message {
	subject, title, intro := SubjectReportUser, "Ihr KI-Status-Report", "anbei erhalten Sie Ihren automatisch generierten KI-Status-Report."
	if aud == AudienceAdmin {
		subject, title, intro = SubjectReportAdmin, "Kopie: KI-Status-Report (inkl. Briefing)", "dies ist die Admin-Kopie des automatisch generierten KI-Status-Reports."
	}

	var body strings.Builder
	body.WriteString("<p>Guten Tag,</p>")
	body.WriteString("<p>" + html.EscapeString(intro) + "</p>")
	text := "Guten Tag,\n\n" + intro + "\n"
	if pdfURL != "" {
		fmt.Fprintf(&body, `<p>Sie können den Report <a href="%s">hier als PDF abrufen</a>.</p>`, html.EscapeString(pdfURL))
		text += "\nPDF: " + pdfURL + "\n"
	}

	return Message{
		To:      to,
		Subject: subject,
		HTML:    fmt.Sprintf(layout, html.EscapeString(title), body.String()),
		Text:    text,
	}
}

// LoginCode builds the one-time-code email.
func LoginCode(to, code string, ttl time.Duration) Message {
	mins := int(ttl / time.Minute)
	if mins < 1 {
		mins = 1
	}
	body := fmt.Sprintf(`<p>Hallo!</p><p>Dein 6-stelliger Login-Code lautet:</p><p class="code">%s</p><p>Er ist %d Minuten gültig.</p><p>Falls du diesen Code nicht angefordert hast, kannst du diese E-Mail ignorieren.</p>`,
		html.EscapeString(code), mins)
	text := fmt.Sprintf("Hallo!\n\nDein 6-stelliger Login-Code lautet: %s\nEr ist %d Minuten gültig.\n\nFalls du diesen Code nicht angefordert hast, kannst du diese E-Mail ignorieren.\n\nViele Grüße\nKI-Sicherheit.jetzt", code, mins)
	return Message{
		To:      []string{to},
		Subject: SubjectLoginCode,
		HTML:    fmt.Sprintf(layout, "Dein Login-Code", body),
		Text:    text,
	}
}
