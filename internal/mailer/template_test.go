package mailer

import (
	"strings"
	"testing"
)

func TestRenderIsDeterministic(t *testing.T) {
	a := Render("New suggestion in HR", "line one\nline two", KindNew)
	b := Render("New suggestion in HR", "line one\nline two", KindNew)

	if a.HTML != b.HTML || a.Text != b.Text {
		t.Fatal("Render produced different output for identical input")
	}
}

func TestRenderKinds(t *testing.T) {
	cases := []struct {
		kind  Kind
		color string
		label string
	}{
		{KindNew, "#10b981", "New Suggestion"},
		{KindReply, "#3b82f6", "Reply to Suggestion"},
		{KindGeneral, "#6b7280", "Notification"},
		{Kind("urgent"), "#6b7280", "Notification"},
		{Kind(""), "#6b7280", "Notification"},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			out := Render("Title", "Body text", tc.kind)
			if !strings.Contains(out.HTML, "background-color: "+tc.color) {
				t.Errorf("expected header color %s in HTML", tc.color)
			}
			if !strings.Contains(out.HTML, `<div class="badge">`+tc.label+`</div>`) {
				t.Errorf("expected badge %q in HTML", tc.label)
			}
		})
	}
}

func TestRenderBody(t *testing.T) {
	out := Render("Report <1>", "first\r\nsecond\nthird <script>", KindGeneral)

	cases := []struct {
		name string
		want string
	}{
		{"newlines become breaks", "first<br>second<br>third"},
		{"body is escaped", "&lt;script&gt;"},
		{"title is escaped", `<h2 class="title">Report &lt;1&gt;</h2>`},
		{"footer disclaimer", "Please do not reply to this email."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !strings.Contains(out.HTML, tc.want) {
				t.Errorf("expected %q in HTML", tc.want)
			}
		})
	}

	if strings.Contains(out.HTML, "<script>") {
		t.Error("raw script tag leaked into HTML")
	}
	if out.Text != "Report <1>\n\nfirst\nsecond\nthird <script>" {
		t.Errorf("unexpected text variant: %q", out.Text)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"new":     KindNew,
		" Reply ": KindReply,
		"general": KindGeneral,
		"nueva":   KindGeneral,
		"":        KindGeneral,
	}
	for in, want := range cases {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
	if Kind("other").Valid() {
		t.Error("unknown kind reported valid")
	}
}
