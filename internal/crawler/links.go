package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// itemPathPattern matches listing page paths: a numeric identifier of
// at least three digits under the rental section.
var itemPathPattern = regexp.MustCompile(`/vuokra-asunnot/.*/[0-9]{3,}`)

// ItemLinks extracts listing page URLs from rendered pagination
// markup. Links must stay on the listing domain, match the numeric-id
// path pattern and not carry an "origin" query parameter. Order of
// first appearance is preserved and duplicates are dropped.
func ItemLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		u, err := base.Parse(href)
		if err != nil {
			return
		}
		if u.Hostname() != base.Hostname() {
			return
		}
		if !itemPathPattern.MatchString(u.Path) {
			return
		}
		if u.Query().Has("origin") {
			return
		}

		u.Fragment = ""
		canonical := u.String()
		if !seen[canonical] {
			seen[canonical] = true
			links = append(links, canonical)
		}
	})

	return links
}
