package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// ResetPassword is the only mail the service sends.
const ResetPassword = "reset_password"

// ErrUnknownTemplate is returned by Render for a name with no embedded parts.
var ErrUnknownTemplate = errors.New("unknown email template")

// EmailData is the field set the templates read.
type EmailData struct {
	AppName        string `json:"AppName"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	ResetURL string `json:"ResetURL"`

	ExpiresAt     time.Time `json:"ExpiresAt"`
	ExpiresAtText string    `json:"ExpiresAtText"`
	ExpiresInText string    `json:"ExpiresInText"`
}

// ToMap flattens EmailData into the map carried by an EmailJob, so a job
// survives a JSON round trip through the queue unchanged.
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn backs {{ .Value | default "Fallback" }}.
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case nil:
		return fallback
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	}
	if rv := reflect.ValueOf(value); !rv.IsValid() || rv.IsZero() {
		return fallback
	}
	return value
}

func funcs() map[string]any {
	return map[string]any{
		"upper":   strings.ToUpper,
		"default": defaultFn,
	}
}

// set holds every embedded template parsed once. Subject and text parts go
// through text/template, html parts through html/template for escaping.
type set struct {
	text *texttpl.Template
	html *htmpl.Template
}

var (
	loadOnce sync.Once
	loaded   set
	loadErr  error
)

func load() (set, error) {
	loadOnce.Do(func() {
		t, err := texttpl.New("mail").Funcs(texttpl.FuncMap(funcs())).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl")
		if err != nil {
			loadErr = fmt.Errorf("parse text templates: %w", err)
			return
		}
		h, err := htmpl.New("mail").Funcs(htmpl.FuncMap(funcs())).ParseFS(FS, "*.html.tmpl")
		if err != nil {
			loadErr = fmt.Errorf("parse html templates: %w", err)
			return
		}
		loaded = set{text: t, html: h}
	})
	return loaded, loadErr
}

// Render executes <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl
// against data. The subject is trimmed to a single header-safe line.
func Render(name string, data any) (subject, text, html string, err error) {
	s, err := load()
	if err != nil {
		return "", "", "", err
	}
	if s.text.Lookup(name+".subject.tmpl") == nil || s.text.Lookup(name+".text.tmpl") == nil || s.html.Lookup(name+".html.tmpl") == nil {
		return "", "", "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err = s.text.ExecuteTemplate(&buf, name+".subject.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("exec %s subject: %w", name, err)
	}
	subject = strings.Join(strings.Fields(buf.String()), " ")

	buf.Reset()
	if err = s.text.ExecuteTemplate(&buf, name+".text.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("exec %s text: %w", name, err)
	}
	text = buf.String()

	buf.Reset()
	if err = s.html.ExecuteTemplate(&buf, name+".html.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("exec %s html: %w", name, err)
	}
	return subject, text, buf.String(), nil
}
