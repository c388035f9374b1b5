package domain

// RawRecord is one listing card as extracted from the search page.
// Every field is optional; an empty string means the extractor found nothing.
type RawRecord struct {
	ExternalID string // numeric LinkedIn posting id
	Title      string
	Company    string
	Link       string
	PostedText string // display text, e.g. "2 hours ago"
}
