// Package extract turns raw listing markup into structured price and trend
// data. Extraction runs an ordered strategy cascade per grade: a structured
// lookup against the publisher's price container first, then regex fallbacks
// over the raw text for grades the structured pass left unset.
package extract

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

// Result is a successful extraction: the per-grade prices plus the
// publisher's forward adjustment statement.
type Result struct {
	Prices         models.PriceSet
	Trend          models.Trend
	NextAdjustment *string
}

// priceContainerSelector locates the publisher's label/value price list.
const priceContainerSelector = "#youjia > dl"

// numberRe matches the first decimal-looking substring of a candidate price.
var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// fallbackPatterns holds the per-grade regex cascade, most specific first.
// The marker-with-# form is tried before the looser marker-only form; diesel
// additionally matches its textual marker.
var fallbackPatterns = map[models.Grade][]*regexp.Regexp{
	models.Grade92: {
		regexp.MustCompile(`92#[^\d]{0,40}(\d+(?:\.\d+)?)元`),
		regexp.MustCompile(`92[^\d]{0,40}(\d+(?:\.\d+)?)元`),
	},
	models.Grade95: {
		regexp.MustCompile(`95#[^\d]{0,40}(\d+(?:\.\d+)?)元`),
		regexp.MustCompile(`95[^\d]{0,40}(\d+(?:\.\d+)?)元`),
	},
	models.Grade98: {
		regexp.MustCompile(`98#[^\d]{0,40}(\d+(?:\.\d+)?)元`),
		regexp.MustCompile(`98[^\d]{0,40}(\d+(?:\.\d+)?)元`),
	},
	models.GradeDiesel: {
		regexp.MustCompile(`0#[^\d]{0,40}(\d+(?:\.\d+)?)元`),
		regexp.MustCompile(`柴油[^\d]{0,40}(\d+(?:\.\d+)?)元`),
	},
}

// Extract parses one region's listing markup. It fails only when no grade
// yields a strictly positive price; trend extraction never fails and falls
// back to the stable default.
func Extract(markup []byte) (*Result, error) {
	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if docErr != nil {
		doc = nil
	}

	prices := models.PriceSet{}
	if doc != nil {
		extractStructured(doc, &prices)
	}
	extractFallback(string(markup), &prices)

	if !prices.HasPositivePrice() {
		return nil, models.NewExtractionError("no data parsed")
	}

	trend, nextAdjustment := extractTrend(doc, string(markup))

	return &Result{
		Prices:         prices,
		Trend:          trend,
		NextAdjustment: nextAdjustment,
	}, nil
}

// extractStructured walks the publisher's dl list and pairs each dt label
// with its dd value. A label matches a gasoline grade when it contains the
// grade marker ("92#"), diesel on "0#" or the textual marker.
func extractStructured(doc *goquery.Document, prices *models.PriceSet) {
	doc.Find(priceContainerSelector).Each(func(_ int, dl *goquery.Selection) {
		label := strings.TrimSpace(dl.Find("dt").First().Text())
		value := strings.TrimSpace(dl.Find("dd").First().Text())
		if label == "" || value == "" {
			return
		}

		grade, ok := gradeForLabel(label)
		if !ok {
			return
		}
		if prices.Price(grade) != nil {
			return
		}
		prices.SetPrice(grade, parsePrice(value))
	})
}

// gradeForLabel maps a dt label to the grade it describes.
func gradeForLabel(label string) (models.Grade, bool) {
	switch {
	case strings.Contains(label, "92#"):
		return models.Grade92, true
	case strings.Contains(label, "95#"):
		return models.Grade95, true
	case strings.Contains(label, "98#"):
		return models.Grade98, true
	case strings.Contains(label, "0#"), strings.Contains(label, "柴油"):
		return models.GradeDiesel, true
	}
	return "", false
}

// extractFallback scans the full raw text with the per-grade pattern cascade
// for every grade the structured lookup did not resolve.
func extractFallback(raw string, prices *models.PriceSet) {
	for _, grade := range models.Grades() {
		if prices.Price(grade) != nil {
			continue
		}
		for _, re := range fallbackPatterns[grade] {
			m := re.FindStringSubmatch(raw)
			if m == nil {
				continue
			}
			if v := parsePrice(m[1]); v != nil {
				prices.SetPrice(grade, v)
				break
			}
		}
	}
}

// parsePrice normalizes a candidate string to a price value. The first
// decimal-looking substring is parsed; anything unparseable stays unset
// rather than becoming zero.
func parsePrice(candidate string) *float64 {
	num := numberRe.FindString(candidate)
	if num == "" {
		return nil
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	return &v
}
