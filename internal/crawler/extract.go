package crawler

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "apartment-hunter/pkg/errors"
)

// payloadPattern locates the global script-variable assignment holding
// the page's analytics JSON object.
var payloadPattern = regexp.MustCompile(`otAsunnot=(\{.*\});`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExtractListing parses one rendered item page into a ListingRecord.
// Missing optional fields yield zero values; a missing or malformed
// embedded payload is an extraction error since the published
// timestamp cannot be recovered from anywhere else.
func ExtractListing(pageURL, html string, capturedAt time.Time) (ListingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ListingRecord{}, apperrors.NewExtraction("extract", "invalid markup", err)
	}

	rec := ListingRecord{
		URL:        pageURL,
		CapturedAt: capturedAt,
	}

	rec.Title = cleanText(doc.Find("title").First().Text())
	rec.Overview = cleanText(doc.Find(`div[class*="listing-overview"]`).Text())

	extractTable(doc, &rec)
	extractContact(doc, &rec)
	extractCoordinates(doc, &rec)

	published, err := extractPublished(doc)
	if err != nil {
		return ListingRecord{}, err
	}
	rec.Published = published

	return rec, nil
}

// extractTable walks the dt/dd attribute table and fills every row
// whose label the field table knows.
func extractTable(doc *goquery.Document, rec *ListingRecord) {
	doc.Find("dt").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		field, ok := labelToField[label]
		if !ok {
			return
		}
		value := cleanText(s.NextAllFiltered("dd").First().Text())
		if value == "" {
			return
		}
		setField(rec, field, value)
	})
}

// extractContact pulls the contact-person block via the page's
// structural class names.
func extractContact(doc *goquery.Document, rec *ListingRecord) {
	rec.ContactName = cleanText(doc.Find(`div[class*="listing-person__details-item--big"]`).First().Text())
	rec.ContactJobTitle = cleanText(doc.Find(`div[class*="listing-person__details-item--waisted"]`).First().Text())
	rec.ContactPhone = cleanText(doc.Find(`div[class*="listing-person__details-item--sm-top-margin"] span`).Eq(1).Text())
	rec.ContactCompany = cleanText(doc.Find(`div.listing-company__name a span`).First().Text())
	rec.ContactEmail = cleanText(doc.Find("p").First().Text())
}

// extractCoordinates reads the place meta tags; listings without
// coordinates keep nil and are filtered later.
func extractCoordinates(doc *goquery.Document, rec *ListingRecord) {
	rec.Latitude = metaFloat(doc, "place:location:latitude")
	rec.Longitude = metaFloat(doc, "place:location:longitude")
}

func metaFloat(doc *goquery.Document, property string) *float64 {
	content, ok := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return nil
	}
	return &v
}

// extractPublished locates the otAsunnot payload in a script tag and
// returns its nested analytics.published value.
func extractPublished(doc *goquery.Document) (string, error) {
	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "var otAsunnot") {
			script = s.Text()
			return false
		}
		return true
	})
	if script == "" {
		return "", apperrors.NewExtraction("extract", "embedded payload script not found", nil)
	}

	m := payloadPattern.FindStringSubmatch(script)
	if m == nil {
		return "", apperrors.NewExtraction("extract", "embedded payload assignment not found", nil)
	}

	var payload struct {
		Analytics struct {
			Published interface{} `json:"published"`
		} `json:"analytics"`
	}
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return "", apperrors.NewExtraction("extract", "malformed embedded payload", err)
	}
	if payload.Analytics.Published == nil {
		return "", nil
	}
	return fmt.Sprint(payload.Analytics.Published), nil
}

// cleanText collapses whitespace runs the way rendered markup tends to
// scatter them.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
