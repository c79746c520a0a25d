package links

import (
	"regexp"
	"strings"
)

var (
	// targets may hold one level of balanced parentheses, as in wiki URLs
	markdownLinkRe = regexp.MustCompile(`\[[^\]]*\]\(\s*<?((?:[^()\s<>]|\([^()\s]*\))+)>?(?:\s+"[^"]*")?\s*\)`)
	bareURLRe      = regexp.MustCompile(`https?://[^\s<>"]{2,}`)
)

// ExtractLinks returns the targets of [label](url) links in document order.
func ExtractLinks(markdown string) []string {
	matches := markdownLinkRe.FindAllStringSubmatch(markdown, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" {
			continue
		}
		out = append(out, target)
	}
	return out
}

// ExtractURLs returns every bare http(s) URL in text, in order, with
// trailing sentence punctuation trimmed.
func ExtractURLs(text string) []string {
	matches := bareURLRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = trimURLPunctuation(m)
		if len(m) > len("https://") {
			out = append(out, m)
		}
	}
	return out
}

func trimURLPunctuation(s string) string {
	s = strings.TrimRight(s, ".,;:!?'\"`*")
	// a closing paren or bracket only belongs to the URL when it is balanced
	for strings.HasSuffix(s, ")") && strings.Count(s, "(") < strings.Count(s, ")") {
		s = strings.TrimSuffix(s, ")")
	}
	for strings.HasSuffix(s, "]") && strings.Count(s, "[") < strings.Count(s, "]") {
		s = strings.TrimSuffix(s, "]")
	}
	return strings.TrimRight(s, ".,;:!?'\"`*")
}
