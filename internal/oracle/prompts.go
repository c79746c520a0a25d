package oracle

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an AI assistant helping to find downloadable data files " +
	"(CSV, Excel, JSON and similar) on the web. Prefer direct file links over web pages."

func strategyPrompt(query string) string {
	return fmt.Sprintf(`User query: %q

Please suggest:
1. Effective search terms to find relevant data files
2. Types of data sources that might contain this information
3. If possible, specific URLs of publicly available data files or of the portal pages that publish them

Focus on actual downloadable data files (CSV, Excel, JSON) rather than web pages.
Mention specific government datasets, research databases or public data repositories if you know them.
Write every URL as a markdown link: [label](url).`, query)
}

func nextHopPrompt(query, page string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User query: %q\n\n", query)
	sb.WriteString(`Below is the content of the web page currently being browsed, converted to markdown.
Pick the single link on this page that is most likely to lead to a downloadable data file answering the query.
If the page links a data file directly (CSV, XLSX, XLS, JSON, ZIP, ...), return that file's link.
Otherwise return the link of the page most likely to contain it.
Reply with the URL only, exactly as it appears on the page. If nothing on the page is relevant, reply NONE.

Page content:
`)
	sb.WriteString(page)
	return sb.String()
}

func entryPointsPrompt(strategy string) string {
	return fmt.Sprintf(`Based on the search strategy below, list up to five web pages where the requested data
is most likely published (data portals, statistics offices, repository landing pages or direct file links).
Answer with a markdown list, one link per line, in the form - [label](url). Do not invent URLs you are unsure exist.

Search strategy:
%s`, strategy)
}
