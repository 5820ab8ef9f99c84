package message

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/vanng822/go-premailer/premailer"
)

// InlineCSS moves stylesheet rules into element-level style attributes.
// Many mail readers ignore <style> blocks, so inlining is what makes the
// authored styling survive.
func InlineCSS(html string) (string, error) {
	prem, err := premailer.NewPremailerFromString(html, premailer.NewOptions())
	if err != nil {
		return "", fmt.Errorf("parsing HTML for inlining: %w", err)
	}
	inlined, err := prem.Transform()
	if err != nil {
		return "", fmt.Errorf("inlining CSS: %w", err)
	}
	return inlined, nil
}

// HTMLToPlain derives a text body from HTML, for recipients whose readers
// prefer plain text. Falls back to a minimal tag strip when the converter
// rejects the document.
func HTMLToPlain(html string) string {
	if html == "" {
		return ""
	}
	text, err := html2text.FromString(html)
	if err != nil {
		return stripTags(html)
	}
	return strings.TrimSpace(text)
}

var tagRegex = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

func stripTags(html string) string {
	text := tagRegex.ReplaceAllString(html, "")
	return strings.TrimSpace(entityReplacer.Replace(text))
}
