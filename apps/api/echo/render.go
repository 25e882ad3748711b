package echoapi

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	appfs "github.com/trezcool/harmony/fs"
)

const (
	webTemplatesDir = "templates/web"
	webLayout       = "_layout.gohtml"
)

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// templateRenderer renders the site pages, each page being parsed together with the layout.
type templateRenderer struct {
	templates map[string]*template.Template
}

var _ echo.Renderer = (*templateRenderer)(nil)

func newTemplateRenderer(logger core.Logger, strict bool) *templateRenderer {
	r := &templateRenderer{templates: make(map[string]*template.Template)}

	fps, err := fs.Glob(appfs.FS, path.Join(webTemplatesDir, "*.gohtml"))
	if err != nil {
		logger.Error(fmt.Sprintf("echoapi.newTemplateRenderer: %v", err), err)
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.New(webLayout).Funcs(templateFuncs).ParseFS(appfs.FS, path.Join(webTemplatesDir, webLayout), fp)
		if err != nil {
			logger.Error(fmt.Sprintf("echoapi.newTemplateRenderer(%s): %v", fp, err), err)
			continue
		}
		if strict {
			tmpl = tmpl.Option("missingkey=error")
		}
		r.templates[strings.TrimSuffix(fname, ".gohtml")] = tmpl
	}
	return r
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return errors.Wrapf(tmpl.ExecuteTemplate(w, webLayout, data), "rendering %s", name)
}
