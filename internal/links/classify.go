// Package links holds the pure URL helpers used by the traversal engine:
// classification, resolution, fallback anchor scanning, and link extraction
// from oracle text.
package links

import (
	"net/url"
	"path"
	"strings"
)

// DataExtensions lists the recognised data-file extensions. The order is the
// scan order used by FindFallbackLink.
var DataExtensions = []string{
	"csv", "xlsx", "xls", "json", "tsv", "txt", "dat", "db", "sqlite",
	"parquet", "feather", "h5", "hdf5", "pkl", "pickle", "gz", "zip",
}

// PageExtensions lists extensions that identify server-rendered pages.
var PageExtensions = []string{
	"html", "htm", "php", "asp", "aspx", "jsp", "do", "action", "cgi",
}

var (
	dataExtSet = toSet(DataExtensions)
	pageExtSet = toSet(PageExtensions)
)

// Reason names the rule that produced a Classification.
type Reason string

const (
	ReasonDataExtension Reason = "data_extension"
	ReasonPageExtension Reason = "page_extension"
	ReasonQueryString   Reason = "query_string"
	ReasonTrailingSlash Reason = "trailing_slash"
	ReasonDefault       Reason = "default"
)

// Classification is the file-or-page judgment for a URL.
type Classification struct {
	IsFile    bool
	Extension string
	Reason    Reason
}

// Classify decides from the URL string alone whether it most likely
// identifies a downloadable data file. File-extension evidence outranks the
// query-string and trailing-slash heuristics; anything ambiguous is a page.
func Classify(rawURL string) Classification {
	p, query := splitURL(rawURL)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))

	if _, ok := dataExtSet[ext]; ok {
		return Classification{IsFile: true, Extension: ext, Reason: ReasonDataExtension}
	}
	if _, ok := pageExtSet[ext]; ok {
		return Classification{Extension: ext, Reason: ReasonPageExtension}
	}
	if query != "" {
		return Classification{Reason: ReasonQueryString}
	}
	if strings.HasSuffix(p, "/") {
		return Classification{Reason: ReasonTrailingSlash}
	}
	return Classification{Reason: ReasonDefault}
}

// splitURL returns the path and raw query of a URL. Unparseable input falls
// back to manual splitting so classification never fails.
func splitURL(rawURL string) (string, string) {
	rawURL = strings.TrimSpace(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path, u.RawQuery
	}
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	p, query, _ := strings.Cut(rawURL, "?")
	return p, query
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
