// Package templates рендерит письма из встроенных text/template шаблонов.
// Каждый файл files/<kind>.tmpl определяет шаблоны "subject" и "body".
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"
	"time"
)

//go:embed files/*.tmpl
var files embed.FS

// Data данные шаблона: получатель и исходное событие
type Data struct {
	UserName string
	Email    string
	Event    any
}

// Rendered готовое письмо
type Rendered struct {
	Subject string
	Body    string
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"datetime": func(t any) string {
		switch v := t.(type) {
		case time.Time:
			return v.UTC().Format("02.01.2006 15:04 UTC")
		case *time.Time:
			if v == nil {
				return ""
			}
			return v.UTC().Format("02.01.2006 15:04 UTC")
		}
		return fmt.Sprint(t)
	},
}

// Renderer набор шаблонов по виду уведомления
type Renderer struct {
	byKind map[string]*template.Template
}

// NewRenderer загружает все встроенные шаблоны
func NewRenderer() (*Renderer, error) {
	return newRenderer(files)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	names, err := fs.Glob(fsys, "files/*.tmpl")
	if err != nil {
		return nil, err
	}
	r := &Renderer{byKind: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		kind := strings.TrimSuffix(path.Base(name), ".tmpl")
		tmpl, err := template.New(kind).Funcs(funcs).Option("missingkey=error").ParseFS(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", kind, err)
		}
		if tmpl.Lookup("subject") == nil || tmpl.Lookup("body") == nil {
			return nil, fmt.Errorf("template %s must define subject and body", kind)
		}
		r.byKind[kind] = tmpl
	}
	return r, nil
}

// Has есть ли шаблон для kind
func (r *Renderer) Has(kind string) bool {
	_, ok := r.byKind[kind]
	return ok
}

// Render рендерит тему и тело письма
func (r *Renderer) Render(kind string, data Data) (Rendered, error) {
	tmpl, ok := r.byKind[kind]
	if !ok {
		return Rendered{}, fmt.Errorf("no template for %q", kind)
	}
	var subject, body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s subject: %w", kind, err)
	}
	if err := tmpl.ExecuteTemplate(&body, "body", data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s body: %w", kind, err)
	}
	return Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimLeft(body.String(), "\n"),
	}, nil
}
