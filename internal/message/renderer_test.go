package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("Hello {{ name }}, welcome to {{ company }}!", map[string]interface{}{
		"name":    "Bob",
		"company": "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob, welcome to Acme!", out)
}

func TestRenderMissingVariableRendersEmpty(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("Hello {{ missing }}!", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "Hello !", out)
}

func TestRenderConditional(t *testing.T) {
	r := NewRenderer()

	tmpl := "{% if vip %}Welcome back!{% else %}Welcome!{% endif %}"

	out, err := r.Render(tmpl, map[string]interface{}{"vip": true})
	require.NoError(t, err)
	assert.Equal(t, "Welcome back!", out)

	out, err = r.Render(tmpl, map[string]interface{}{"vip": false})
	require.NoError(t, err)
	assert.Equal(t, "Welcome!", out)
}

func TestRenderMalformedTemplate(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render("{% if %}", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering template")
}

func TestRenderEmptyTemplate(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("", map[string]interface{}{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRenderTemplate(t *testing.T) {
	r := NewRenderer()

	rendered, err := r.RenderTemplate(Template{
		Subject: "{{ company }} news",
		Text:    "Hi {{ name }}",
		HTML:    "<p>Hi {{ name }}</p>",
	}, map[string]interface{}{
		"name":    "Carol",
		"company": "Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme news", rendered.Subject)
	assert.Equal(t, "Hi Carol", rendered.Text)
	assert.Equal(t, "<p>Hi Carol</p>", rendered.HTML)
}

func TestRenderTemplateReportsFailingSection(t *testing.T) {
	r := NewRenderer()

	_, err := r.RenderTemplate(Template{
		Subject: "fine",
		Text:    "{% endif %}",
	}, map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text body")
}
