package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	got := ExtractLinks("see [here](http://a.co/x.csv) and [there](http://a.co/y)")
	assert.Equal(t, []string{"http://a.co/x.csv", "http://a.co/y"}, got)
}

func TestExtractLinksHandlesTitlesAndEmpty(t *testing.T) {
	t.Parallel()

	md := "- [Census](<https://census.example.gov/data.csv> \"2020\")\n- [](https://b.example/)\n- [broken](\n"
	got := ExtractLinks(md)
	assert.Equal(t, []string{"https://census.example.gov/data.csv", "https://b.example/"}, got)
	assert.Empty(t, ExtractLinks("no links here"))
}

func TestExtractLinksKeepsBalancedParentheses(t *testing.T) {
	t.Parallel()

	md := "[w](https://en.wikipedia.org/wiki/Foo_(bar)) then [csv](https://a.example/t_(1).csv \"t\")"
	got := ExtractLinks(md)
	assert.Equal(t, []string{
		"https://en.wikipedia.org/wiki/Foo_(bar)",
		"https://a.example/t_(1).csv",
	}, got)
}

func TestExtractURLsTrimsPunctuation(t *testing.T) {
	t.Parallel()

	text := "Try https://data.example.org/co2.csv, or (https://data.example.org/portal). Also https://x.example/a_(b)."
	got := ExtractURLs(text)
	assert.Equal(t, []string{
		"https://data.example.org/co2.csv",
		"https://data.example.org/portal",
		"https://x.example/a_(b)",
	}, got)
}
