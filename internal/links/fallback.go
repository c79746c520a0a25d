package links

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindFallbackLink scans the page's anchors for a data-file link. Extensions
// are tried in DataExtensions order and the first anchor matching the first
// extension that has any match wins. The href is resolved against baseURL.
func FindFallbackLink(pageHTML []byte, baseURL string) (string, bool) {
	if len(pageHTML) == 0 {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return "", false
	}

	hrefs := make([]string, 0, 64)
	paths := make([]string, 0, 64)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		hrefs = append(hrefs, href)
		paths = append(paths, strings.ToLower(u.Path))
	})

	for _, ext := range DataExtensions {
		suffix := "." + ext
		for i, p := range paths {
			if !strings.HasSuffix(p, suffix) {
				continue
			}
			resolved, err := Resolve(hrefs[i], baseURL)
			if err != nil {
				continue
			}
			return resolved, true
		}
	}
	return "", false
}
