package breakout

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html.tmpl"))

// page is the only dynamic input of the HTML document. Everything else,
// including the navigation script, is static template text.
type page struct {
	Title        string
	Message      string
	RefreshDelay int
	Next         string
	Steps        []step
}

func renderPage(p page) ([]byte, error) {
	if p.Steps == nil {
		p.Steps = []step{}
	}
	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "page.html.tmpl", p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
