package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/finreveal/site/internal/site"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageTemplates lists the pages rendered inside the shared layout.
var pageTemplates = []string{"home", "contact", "notfound"}

var templateFuncs = template.FuncMap{
	"isActive": site.IsActive,
}

// parseTemplates builds one template set per page, each with the layout
// and the page's own content block.
func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(
			templateFS, "templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return templates, nil
}

// render renders a full page template with the given status.
func (s *Server) render(w http.ResponseWriter, status int, name string,
	data *PageData) {

	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "template not found: "+name,
			http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Errorf("Render %s: %v", name, err)
	}
}
