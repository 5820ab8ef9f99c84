package message

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AppendPlainFooter appends an unsubscribe notice to a plain-text body.
func AppendPlainFooter(body, unsubscribe string) string {
	if unsubscribe == "" {
		return body
	}
	return fmt.Sprintf("%s\n\n---\nTo unsubscribe, send an email to %s with the subject \"unsubscribe\".",
		strings.TrimRight(body, "\n"), unsubscribe)
}

// AppendHTMLFooter injects an unsubscribe footer at the end of the HTML
// body element. The returned document is re-serialized, so fragments come
// back wrapped in full html/body tags, which mail readers accept.
func AppendHTMLFooter(html, unsubscribe string) (string, error) {
	if unsubscribe == "" {
		return html, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML body: %w", err)
	}

	footer := fmt.Sprintf(
		`<hr style="margin-top:24px;border:none;border-top:1px solid #ddd"><p style="font-size:12px;color:#666">To unsubscribe, <a href="mailto:%s?subject=unsubscribe">send us an email</a>.</p>`,
		unsubscribe)

	body := doc.Find("body")
	if body.Length() == 0 {
		return "", fmt.Errorf("HTML body element not found")
	}
	body.AppendHtml(footer)

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serializing HTML body: %w", err)
	}
	return out, nil
}
