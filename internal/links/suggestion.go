package links

import (
	"net/url"
	"strings"
)

// ExtractSuggestion pulls the next-hop reference out of an oracle answer.
// Markdown link targets win, then bare URLs (data-file URLs first), then a
// lone token that looks like a relative reference. ok is false when nothing
// URL-shaped is present.
func ExtractSuggestion(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if targets := ExtractLinks(text); len(targets) > 0 {
		if ref, ok := pickReference(targets); ok {
			return ref, true
		}
	}
	if urls := ExtractURLs(text); len(urls) > 0 {
		for _, u := range urls {
			if Classify(u).IsFile {
				return u, true
			}
		}
		return urls[0], true
	}

	token := strings.Trim(text, "`'\"<> \t\r\n")
	token = strings.TrimRight(token, ".,;:")
	if looksLikeReference(token) {
		return token, true
	}
	return "", false
}

func pickReference(targets []string) (string, bool) {
	var first string
	for _, t := range targets {
		if !isLinkTarget(t) {
			continue
		}
		if Classify(t).IsFile {
			return t, true
		}
		if first == "" {
			first = t
		}
	}
	return first, first != ""
}

// isLinkTarget accepts any http(s) or scheme-less reference. Markdown link
// targets are explicit, so no further shape is required.
func isLinkTarget(token string) bool {
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return false
	}
	u, err := url.Parse(token)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		return u.Path != "" || u.Host != "" || u.RawQuery != ""
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}

// looksLikeReference is the stricter test for a lone token: it must be
// rooted (/, ./, ../, ?) or end in a known page or data extension, so
// replies like "N/A" or "Yes/No" are not taken for paths.
func looksLikeReference(token string) bool {
	if !isLinkTarget(token) {
		return false
	}
	for _, prefix := range []string{"/", "./", "../", "?"} {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	c := Classify(token)
	return c.Reason == ReasonDataExtension || c.Reason == ReasonPageExtension
}
