package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is one product as it appears in a search result tile. Fields keep
// the text exactly as displayed, e.g. Price "Rs. 1,200" and Sold "120 sold".
type Listing struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Sold  string `json:"sold"`
}

// Row returns the listing as a flat output row.
func (l Listing) Row() []string {
	return []string{l.Name, l.Price, l.Sold}
}

// Batch holds the listings collected from a single page view, in the order
// their containers were found on that page.
type Batch struct {
	RunID     uuid.UUID `json:"run_id"`
	SourceURL string    `json:"source_url"`
	Page      int       `json:"page"`
	Listings  []Listing `json:"listings"`
	ScrapedAt time.Time `json:"scraped_at"`
}

func NewBatch(runID uuid.UUID, sourceURL string, page int) *Batch {
	return &Batch{
		RunID:     runID,
		SourceURL: sourceURL,
		Page:      page,
		Listings:  make([]Listing, 0),
		ScrapedAt: time.Now(),
	}
}

func (b *Batch) Add(l Listing) {
	b.Listings = append(b.Listings, l)
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Listings)
}
