package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

// adjustmentContainerSelector locates the publisher's adjustment notice divs.
const adjustmentContainerSelector = "#youjiaCont > div"

var (
	// nextAdjustmentRe matches the next-adjustment timestamp phrase. The
	// whole match is copied verbatim into the outcome, not parsed into a
	// calendar value.
	nextAdjustmentRe = regexp.MustCompile(`下次油价\d+月\d+日\d+时调整`)

	// trendRe matches the directional phrase: increase/decrease keyword
	// followed by a magnitude in yuan per liter.
	trendRe = regexp.MustCompile(`(?s)目前预计(上调|下调)油价.*?\(([\d.]+)元/升`)
)

// extractTrend searches the adjustment notice for the next-adjustment phrase
// and the directional phrase. It never fails: without a directional phrase
// the stable default is returned.
func extractTrend(doc *goquery.Document, raw string) (models.Trend, *string) {
	text := adjustmentText(doc, raw)

	var nextAdjustment *string
	if phrase := nextAdjustmentRe.FindString(text); phrase != "" {
		nextAdjustment = &phrase
	}

	m := trendRe.FindStringSubmatch(text)
	if m == nil {
		return models.StableTrend(), nextAdjustment
	}

	amount, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return models.StableTrend(), nextAdjustment
	}

	direction := models.TrendUp
	if m[1] == "下调" {
		direction = models.TrendDown
	}

	return models.Trend{
		Direction:   direction,
		Amount:      amount,
		Description: fmt.Sprintf("预计%s%s元/升", m[1], strconv.FormatFloat(amount, 'f', -1, 64)),
	}, nextAdjustment
}

// adjustmentText collects the text of the adjustment notice divs, falling
// back to the full raw markup when the container is absent.
func adjustmentText(doc *goquery.Document, raw string) string {
	if doc == nil {
		return raw
	}

	var parts []string
	doc.Find(adjustmentContainerSelector).Each(func(_ int, div *goquery.Selection) {
		if t := strings.TrimSpace(div.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, "\n")
}
