package linkedin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/internal/domain"
	"jobwatch/internal/scrape/util"
)

var reJobPosting = regexp.MustCompile(`jobPosting:(\d+)`)

// CardExtractor reads the job cards of a guest search results page.
type CardExtractor struct{}

func (CardExtractor) Extract(markup string) ([]domain.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("linkedin parse search html: %w", err)
	}
	return ExtractCards(doc), nil
}

// ExtractCards returns one record per div.job-search-card, in document order.
// Cards missing fields still produce a record; deciding what to do with them
// is up to the caller.
func ExtractCards(doc *goquery.Document) []domain.RawRecord {
	var out []domain.RawRecord

	doc.Find("div.job-search-card").Each(func(_ int, card *goquery.Selection) {
		out = append(out, domain.RawRecord{
			ExternalID: cardJobID(card),
			Title:      util.CleanText(card.Find("h3.base-search-card__title").First().Text()),
			Company:    cardCompany(card),
			Link:       cardLink(card),
			PostedText: util.CleanText(card.Find("time.job-search-card__listdate--new, time.job-search-card__listdate").First().Text()),
		})
	})

	return out
}

func cardJobID(card *goquery.Selection) string {
	urn, ok := card.Attr("data-entity-urn")
	if !ok {
		// some layouts put the urn on an inner base-card div
		urn, _ = card.Find("[data-entity-urn]").First().Attr("data-entity-urn")
	}
	if m := reJobPosting.FindStringSubmatch(urn); len(m) == 2 {
		return m[1]
	}
	return ""
}

func cardCompany(card *goquery.Selection) string {
	sub := card.Find("h4.base-search-card__subtitle").First()
	if t := util.CleanText(sub.Find("a.hidden-nested-link").First().Text()); t != "" {
		return t
	}
	// unlinked company names are plain text in the subtitle
	return util.CleanText(sub.Text())
}

func cardLink(card *goquery.Selection) string {
	href, ok := card.Find("a.base-card__full-link").First().Attr("href")
	if !ok {
		return ""
	}
	return util.CanonicalizeURL(href)
}
