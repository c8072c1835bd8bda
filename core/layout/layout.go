// Package layout builds the HTML shell and the content blocks of transactional emails.
// Every helper is a pure function; text is inserted as-is so it may carry {{tokens}} and inline markup.
package layout

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	brandColor  = "#4f46e5"
	textColor   = "#1f2937"
	mutedColor  = "#6b7280"
	calloutBg   = "#eef2ff"
	borderColor = "#e5e7eb"
	fontStack   = "-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif"
)

// Block types understood by Build.
const (
	BlockHeading   = "heading"
	BlockParagraph = "paragraph"
	BlockButton    = "button"
	BlockCallout   = "callout"
	BlockDivider   = "divider"
	BlockHTML      = "html"
)

var (
	ErrUnknownBlock = errors.New("unknown block type")

	bodyTagRegex = regexp.MustCompile(`(?i)<body[^>]*>`)
)

// Block is one element of an email body, as written in the seed catalog.
type Block struct {
	Type string `json:"type" yaml:"type"`
	Text string `json:"text,omitempty" yaml:"text"`
	URL  string `json:"url,omitempty" yaml:"url"`
}

// Wrap returns the full HTML document around content.
func Wrap(title, content string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>` + title + `</title>
</head>
<body style="margin:0;padding:0;background:#f9fafb;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background:#f9fafb;">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="max-width:600px;width:100%;background:#ffffff;border:1px solid ` + borderColor + `;border-radius:8px;">
<tr><td style="padding:32px;font-family:` + fontStack + `;color:` + textColor + `;font-size:16px;line-height:1.6;">
` + content + `
</td></tr>
</table>
<p style="font-family:` + fontStack + `;color:` + mutedColor + `;font-size:12px;margin:16px 0 0;">{{appName}}</p>
</td></tr>
</table>
</body>
</html>`
}

func Heading(text string) string {
	return fmt.Sprintf(`<h1 style="margin:0 0 16px;font-size:24px;line-height:1.3;color:%s;">%s</h1>`, textColor, text)
}

func Paragraph(text string) string {
	return fmt.Sprintf(`<p style="margin:0 0 16px;">%s</p>`, text)
}

func PrimaryButton(label, url string) string {
	return fmt.Sprintf(
		`<table role="presentation" cellpadding="0" cellspacing="0" style="margin:24px 0;"><tr><td style="border-radius:6px;background:%s;">`+
			`<a href="%s" style="display:inline-block;padding:12px 24px;color:#ffffff;text-decoration:none;font-weight:600;">%s</a>`+
			`</td></tr></table>`,
		brandColor, url, label,
	)
}

func Callout(text string) string {
	return fmt.Sprintf(
		`<div style="margin:0 0 16px;padding:16px;background:%s;border-left:4px solid %s;border-radius:4px;">%s</div>`,
		calloutBg, brandColor, text,
	)
}

func Divider() string {
	return fmt.Sprintf(`<hr style="border:none;border-top:1px solid %s;margin:24px 0;">`, borderColor)
}

// Preheader returns the hidden inbox preview text element.
func Preheader(text string) string {
	if text == "" {
		return ""
	}
	return `<span style="display:none;max-height:0;overflow:hidden;opacity:0;color:transparent;">` + text + `</span>`
}

// InsertPreheader puts the preheader element at the top of the document body.
func InsertPreheader(doc, preheader string) string {
	p := Preheader(preheader)
	if p == "" {
		return doc
	}
	if loc := bodyTagRegex.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "\n" + p + doc[loc[1]:]
	}
	return p + doc
}

// Build compiles blocks into HTML, one block per line.
func Build(blocks []Block) (string, error) {
	parts := make([]string, 0, len(blocks))
	for i, b := range blocks {
		var part string
		switch strings.ToLower(strings.TrimSpace(b.Type)) {
		case BlockHeading:
			part = Heading(b.Text)
		case BlockParagraph:
			part = Paragraph(b.Text)
		case BlockButton:
			if b.URL == "" {
				return "", errors.Errorf("block %d: button without url", i)
			}
			part = PrimaryButton(b.Text, b.URL)
		case BlockCallout:
			part = Callout(b.Text)
		case BlockDivider:
			part = Divider()
		case BlockHTML:
			part = b.Text
		default:
			return "", errors.Wrapf(ErrUnknownBlock, "block %d: %q", i, b.Type)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "\n"), nil
}

var (
	headRegex      = regexp.MustCompile(`(?is)<head.*?</head>|<style.*?</style>|<span style="display:none[^"]*">.*?</span>`)
	breakRegex     = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</h[1-6]>|</div>|</tr>|<hr[^>]*>`)
	linkRegex      = regexp.MustCompile(`(?is)<a\s[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	tagRegex       = regexp.MustCompile(`(?s)<[^>]+>`)
	hSpaceRegex    = regexp.MustCompile(`[ \t]+`)
	blankLineRegex = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
)

// PlainText derives the text/plain alternative of an HTML email.
func PlainText(doc string) string {
	s := headRegex.ReplaceAllString(doc, "")
	s = linkRegex.ReplaceAllString(s, "$2 ($1)")
	s = breakRegex.ReplaceAllString(s, "\n")
	s = tagRegex.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = hSpaceRegex.ReplaceAllString(s, " ")
	s = blankLineRegex.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(blankLineRegex.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
