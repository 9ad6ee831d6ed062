package mailer

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/notification.html
var templateFS embed.FS

var notificationTmpl = template.Must(template.ParseFS(templateFS, "templates/notification.html"))

// Kind tags a notification and picks its header color and badge label.
type Kind string

const (
	KindNew     Kind = "new"
	KindReply   Kind = "reply"
	KindGeneral Kind = "general"
)

type kindStyle struct {
	color template.CSS
	label string
}

var kindStyles = map[Kind]kindStyle{
	KindNew:     {color: "#10b981", label: "New Suggestion"},
	KindReply:   {color: "#3b82f6", label: "Reply to Suggestion"},
	KindGeneral: {color: "#6b7280", label: "Notification"},
}

// ParseKind maps s to a Kind. Unknown values fall back to KindGeneral.
func ParseKind(s string) Kind {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindStyles[k]; ok {
		return k
	}
	return KindGeneral
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindStyles[k]
	return ok
}

// Rendered holds both variants of a notification body.
type Rendered struct {
	HTML string
	Text string
}

type notificationData struct {
	Color template.CSS
	Label string
	Title string
	Body  template.HTML
}

// Render builds the HTML and plain-text bodies for a notification. It has no
// side effects: the same arguments always produce the same bytes.
func Render(title, body string, kind Kind) Rendered {
	style, ok := kindStyles[kind]
	if !ok {
		style = kindStyles[KindGeneral]
	}

	body = strings.ReplaceAll(body, "\r\n", "\n")

	data := notificationData{
		Color: style.color,
		Label: style.label,
		Title: title,
		Body:  template.HTML(strings.ReplaceAll(template.HTMLEscapeString(body), "\n", "<br>")),
	}

	var buf bytes.Buffer
	if err := notificationTmpl.Execute(&buf, data); err != nil {
		// The template is fixed and parsed at init; this only trips on a
		// broken embed.
		panic("mailer: render notification: " + err.Error())
	}

	return Rendered{
		HTML: buf.String(),
		Text: title + "\n\n" + body,
	}
}
