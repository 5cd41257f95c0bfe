// Package templates embeds the HTML pages and renders them through gin.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
)

//go:embed html
var files embed.FS

// Renderer implements render.HTMLRender with one template set per page,
// so every page can define its own "title" and "content" blocks.
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// New parses every page under html/ together with the base layout and includes.
func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	err := fs.WalkDir(files, "html", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(p, "html/includes/") || p == "html/base.html" {
			return nil
		}
		name := strings.TrimPrefix(p, "html/")
		t, err := template.New(path.Base(p)).Funcs(Funcs()).ParseFS(files, "html/base.html", "html/includes/*.html", p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is New for program start-up.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Instance renders the named page, e.g. "posts/index.html".
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		panic(fmt.Sprintf("template %q is not defined", name))
	}
	return render.HTML{Template: t, Name: "base", Data: data}
}

// Funcs are the helpers available to every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"linebreaksbr": linebreaksbr,
		"date":         func(t time.Time) string { return t.Format("2 January 2006") },
		"media":        func(rel string) string { return "/media/" + rel },
		"pageURL":      pageURL,
		"safe":         func(s string) template.HTML { return template.HTML(s) },
		"dict":         dict,
	}
}

// dict builds a map from alternating keys and values, for passing several values to an include.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

func linebreaksbr(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// pageURL builds "?page=N" keeping any other query parameters.
func pageURL(query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", fmt.Sprint(page))
	return "?" + q.Encode()
}
