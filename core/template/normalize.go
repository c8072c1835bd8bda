package template

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	emojiRegex = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{1F1E6}-\x{1F1FF}\x{FE00}-\x{FE0F}\x{200D}\x{20E3}]`)

	boldStarRegex  = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	boldUnderRegex = regexp.MustCompile(`__([^_\n]+?)__`)
	italicRegex    = regexp.MustCompile(`(^|[^*\w])\*([^*\n]+?)\*`)
	codeRegex      = regexp.MustCompile("`([^`\n]+)`")
	headingRegex   = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)

	multiSpaceRegex    = regexp.MustCompile(`[ \t]{2,}`)
	trailingSpaceRegex = regexp.MustCompile(`(?m)[ \t]+$`)
	blankLinesRegex    = regexp.MustCompile(`\n{3,}`)
)

// CleanContent strips emoji and markdown decoration from authored copy before it is stored.
// Placeholder tokens are preserved untouched.
func CleanContent(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	// park tokens so emphasis markers around them still pair up
	var (
		b      strings.Builder
		tokens []string
		last   int
	)
	scanTokens(s, func(start, end int, _ string) {
		b.WriteString(s[last:start])
		b.WriteString(parkedToken(len(tokens)))
		tokens = append(tokens, s[start:end])
		last = end
	})
	b.WriteString(s[last:])
	s = b.String()

	s = emojiRegex.ReplaceAllString(s, "")
	s = headingRegex.ReplaceAllString(s, "")
	s = boldStarRegex.ReplaceAllString(s, "$1")
	s = boldUnderRegex.ReplaceAllString(s, "$1")
	s = italicRegex.ReplaceAllString(s, "$1$2")
	s = codeRegex.ReplaceAllString(s, "$1")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	s = trailingSpaceRegex.ReplaceAllString(s, "")
	s = blankLinesRegex.ReplaceAllString(s, "\n\n")

	for i, tok := range tokens {
		s = strings.Replace(s, parkedToken(i), tok, 1)
	}
	return strings.TrimSpace(s)
}

func parkedToken(i int) string {
	return "\x00" + strconv.Itoa(i) + "\x00"
}
