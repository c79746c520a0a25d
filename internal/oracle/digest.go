package oracle

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelectors never carry links worth following. Navigation, headers and
// footers stay: data portals often keep their download links there.
const noiseSelectors = "script,noscript,style,link,meta,iframe,svg,canvas,object,embed,template"

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// Digester turns fetched page bodies into compact markdown for the model.
type Digester struct {
	converter *md.Converter
	maxChars  int
}

// NewDigester builds a digester that truncates output to maxChars runes;
// zero disables truncation.
func NewDigester(maxChars int) *Digester {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Digester{converter: converter, maxChars: maxChars}
}

// Digest converts page content to markdown, keeping link targets as
// written so relative references still resolve against the page URL.
// Content that is not HTML is passed through unchanged.
func (d *Digester) Digest(content string) string {
	if !looksLikeHTML(content) {
		return d.truncate(strings.TrimSpace(content))
	}

	title := extractTitle(content)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return d.truncate(strings.TrimSpace(content))
	}
	doc.Find(noiseSelectors).Remove()
	doc.Find("[hidden],[aria-hidden='true']").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	cleaned, err := goquery.OuterHtml(body)
	if err != nil {
		return d.truncate(strings.TrimSpace(content))
	}

	markdown, err := d.converter.ConvertString(cleaned)
	if err != nil {
		markdown = strings.TrimSpace(body.Text())
	}
	markdown = cleanMarkdown(markdown)
	if title != "" {
		markdown = "# " + title + "\n\n" + markdown
	}
	return d.truncate(markdown)
}

func (d *Digester) truncate(s string) string {
	if d.maxChars <= 0 || utf8.RuneCountInString(s) <= d.maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:d.maxChars]) + "\n\n[content truncated]"
}

func looksLikeHTML(content string) bool {
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = strings.ToLower(head)
	return strings.Contains(head, "<html") ||
		strings.Contains(head, "<!doctype html") ||
		strings.Contains(head, "<body") ||
		strings.Contains(head, "<a ") ||
		strings.Contains(head, "<div")
}

func extractTitle(content string) string {
	root, err := html.Parse(bytes.NewReader([]byte(content)))
	if err != nil {
		return ""
	}
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				return strings.Join(strings.Fields(n.FirstChild.Data), " ")
			}
			return ""
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := walk(c); t != "" {
				return t
			}
		}
		return ""
	}
	return walk(root)
}

func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
