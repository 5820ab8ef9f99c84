package message

import (
	"fmt"

	"github.com/osteele/liquid"
)

// Template is the authored campaign content before personalization.
type Template struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer personalizes templates with per-recipient bindings using
// liquid syntax ({{ name }}, {% if %}...).
type Renderer struct {
	engine *liquid.Engine
}

// NewRenderer creates a renderer with the default liquid engine.
func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

// Render renders a single template string. Unknown variables render empty,
// matching liquid semantics; malformed templates fail.
func (r *Renderer) Render(template string, bindings map[string]interface{}) (string, error) {
	if template == "" {
		return "", nil
	}
	out, err := r.engine.ParseAndRenderString(template, bindings)
	if err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return out, nil
}

// RenderTemplate renders subject, text and HTML with the same bindings.
func (r *Renderer) RenderTemplate(tmpl Template, bindings map[string]interface{}) (Template, error) {
	subject, err := r.Render(tmpl.Subject, bindings)
	if err != nil {
		return Template{}, fmt.Errorf("subject: %w", err)
	}
	text, err := r.Render(tmpl.Text, bindings)
	if err != nil {
		return Template{}, fmt.Errorf("text body: %w", err)
	}
	html, err := r.Render(tmpl.HTML, bindings)
	if err != nil {
		return Template{}, fmt.Errorf("html body: %w", err)
	}
	return Template{Subject: subject, Text: text, HTML: html}, nil
}
