package template

import (
	"html"
	"sort"
	"strings"
)

// Placeholder tokens look like {{firstName}}: an identifier matching [A-Za-z_][A-Za-z0-9_]*
// between double braces, with no surrounding whitespace.
const (
	tokenOpen  = "{{"
	tokenClose = "}}"
)

type (
	// Content is the mergeable part of a Template.
	Content struct {
		Subject   string `json:"subject"`
		Preheader string `json:"preheader"`
		Body      string `json:"body"`
	}

	// Context maps placeholder names to pre-formatted values.
	Context map[string]string

	// Diagnostics is the side-channel report of a merge. It never blocks rendering.
	Diagnostics struct {
		Missing []string `json:"missing"` // referenced but not supplied
		Unused  []string `json:"unused"`  // supplied but not referenced
	}

	// LintReport compares the declared placeholders of a Template with the tokens it actually uses.
	LintReport struct {
		Undeclared   []string `json:"undeclared"`   // used but not declared
		Unreferenced []string `json:"unreferenced"` // declared but not used
	}
)

func (d Diagnostics) OK() bool { return len(d.Missing) == 0 && len(d.Unused) == 0 }

func (r LintReport) OK() bool { return len(r.Undeclared) == 0 && len(r.Unreferenced) == 0 }

// Escaped returns a copy of ctx where the values of `keys` are HTML-escaped.
// Values coming from users must go through here before being merged into an HTML body.
func (ctx Context) Escaped(keys ...string) Context {
	res := make(Context, len(ctx))
	for k, v := range ctx {
		res[k] = v
	}
	for _, k := range keys {
		if v, ok := res[k]; ok {
			res[k] = html.EscapeString(v)
		}
	}
	return res
}

// Render substitutes every {{name}} token of c found in ctx.
// Values are inserted verbatim and never re-scanned; unknown tokens are left as they are.
func Render(c Content, ctx Context) Content {
	return Content{
		Subject:   RenderString(c.Subject, ctx),
		Preheader: RenderString(c.Preheader, ctx),
		Body:      RenderString(c.Body, ctx),
	}
}

// RenderString is Render for a single string.
func RenderString(s string, ctx Context) string {
	if len(ctx) == 0 || !strings.Contains(s, tokenOpen) {
		return s
	}

	var (
		b    strings.Builder
		last int
	)
	b.Grow(len(s))
	scanTokens(s, func(start, end int, name string) {
		val, ok := ctx[name]
		if !ok {
			return
		}
		b.WriteString(s[last:start])
		b.WriteString(val)
		last = end
	})
	b.WriteString(s[last:])
	return b.String()
}

// Validate reports the tokens of c missing from ctx (first occurrence order)
// and the keys of ctx that c never references (sorted).
func Validate(c Content, ctx Context) Diagnostics {
	used := Tokens(c.Subject, c.Preheader, c.Body)
	diag := Diagnostics{Missing: make([]string, 0), Unused: make([]string, 0)}

	usedSet := make(map[string]struct{}, len(used))
	for _, name := range used {
		usedSet[name] = struct{}{}
		if _, ok := ctx[name]; !ok {
			diag.Missing = append(diag.Missing, name)
		}
	}
	for k := range ctx {
		if _, ok := usedSet[k]; !ok {
			diag.Unused = append(diag.Unused, k)
		}
	}
	sort.Strings(diag.Unused)
	return diag
}

// Tokens returns the distinct placeholder names found in texts, in first occurrence order.
func Tokens(texts ...string) []string {
	names := make([]string, 0)
	seen := make(map[string]struct{})
	for _, s := range texts {
		scanTokens(s, func(_, _ int, name string) {
			if _, ok := seen[name]; ok {
				return
			}
			seen[name] = struct{}{}
			names = append(names, name)
		})
	}
	return names
}

// Lint checks t's declared placeholders against the tokens in its subject, preheader and body.
func Lint(t Template) LintReport {
	used := Tokens(t.Subject, t.Preheader, t.Body)
	report := LintReport{Undeclared: make([]string, 0), Unreferenced: make([]string, 0)}

	declared := make(map[string]struct{}, len(t.Placeholders))
	for _, p := range t.Placeholders {
		declared[p] = struct{}{}
	}
	usedSet := make(map[string]struct{}, len(used))
	for _, name := range used {
		usedSet[name] = struct{}{}
		if _, ok := declared[name]; !ok {
			report.Undeclared = append(report.Undeclared, name)
		}
	}
	for _, p := range t.Placeholders {
		if _, ok := usedSet[p]; !ok {
			report.Unreferenced = append(report.Unreferenced, p)
		}
	}
	return report
}

// IsPlaceholderName reports whether name is a valid placeholder identifier.
func IsPlaceholderName(name string) bool {
	return name != "" && identLen(name) == len(name)
}

// scanTokens calls fn with the byte range and name of every well-formed token in s, left to right.
// On a "{{" that does not open a token, scanning resumes at the next byte,
// so "{{a{{b}}}}" yields only "b" and an unterminated "{{a" stays literal.
func scanTokens(s string, fn func(start, end int, name string)) {
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], tokenOpen)
		if j < 0 {
			return
		}
		start := i + j
		nameStart := start + len(tokenOpen)
		n := identLen(s[nameStart:])
		if n > 0 && strings.HasPrefix(s[nameStart+n:], tokenClose) {
			end := nameStart + n + len(tokenClose)
			fn(start, end, s[nameStart:nameStart+n])
			i = end
			continue
		}
		i = start + 1
	}
}

// identLen returns the length of the identifier prefix of s.
func identLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
			if i == 0 {
				return 0
			}
		default:
			return i
		}
	}
	return len(s)
}
