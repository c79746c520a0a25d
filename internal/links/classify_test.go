package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url    string
		isFile bool
		ext    string
		reason Reason
	}{
		{"https://data.gov/files/report.csv", true, "csv", ReasonDataExtension},
		{"https://data.gov/files/REPORT.CSV", true, "csv", ReasonDataExtension},
		{"https://data.gov/files/report.csv?download=1", true, "csv", ReasonDataExtension},
		{"https://data.gov/files/report.xlsx#sheet2", true, "xlsx", ReasonDataExtension},
		{"https://data.gov/archive/2023.tar.gz", true, "gz", ReasonDataExtension},
		{"https://data.gov/data.csv.html", false, "html", ReasonPageExtension},
		{"https://data.gov/search.php?q=co2", false, "php", ReasonPageExtension},
		{"https://data.gov/datasets?topic=population", false, "", ReasonQueryString},
		{"https://data.gov/datasets/", false, "", ReasonTrailingSlash},
		{"https://data.gov/datasets/population", false, "", ReasonDefault},
		{"https://data.gov/v1.2/download", false, "", ReasonDefault},
		{"/relative/table.parquet", true, "parquet", ReasonDataExtension},
	}

	for _, tc := range cases {
		got := Classify(tc.url)
		assert.Equal(t, tc.isFile, got.IsFile, tc.url)
		assert.Equal(t, tc.ext, got.Extension, tc.url)
		assert.Equal(t, tc.reason, got.Reason, tc.url)
	}
}

func TestClassifyEveryDataExtensionIsFile(t *testing.T) {
	t.Parallel()

	for _, ext := range DataExtensions {
		for _, suffix := range []string{"", "?page=2", "#top"} {
			url := "https://example.org/dl/export." + ext + suffix
			assert.True(t, Classify(url).IsFile, url)
		}
	}
}

func TestClassifyPageExtensionOutranksEarlierDataExtension(t *testing.T) {
	t.Parallel()

	for _, ext := range PageExtensions {
		url := "https://example.org/files/data.csv." + ext
		got := Classify(url)
		assert.False(t, got.IsFile, url)
		assert.Equal(t, ext, got.Extension, url)
	}
}
