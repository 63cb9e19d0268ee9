// Package view renders the server-side auth pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var files embed.FS

// Pages that can be rendered.
var pages = []string{"login", "register", "resetpw", "logout"}

// Page is the data every template receives.
type Page struct {
	Title    string
	Action   string
	Flashes  []string
	Redirect string
}

// Renderer implements echo.Renderer over one template set per page, each
// sharing the layout.
type Renderer struct {
	sets map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{sets: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+p+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.sets[p] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.sets[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
