package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SearchQuery is a validated, normalised flight search.
type SearchQuery struct {
	Origin        string
	Destination   string
	DepartureDate time.Time
	ReturnDate    *time.Time
	Adults        int
}

// OfferSource returns the provider's raw offers for a query.
type OfferSource interface {
	Name() string
	Search(ctx context.Context, q SearchQuery) ([]RawOffer, error)
}

// RawOffer mirrors one entry of the provider's flight-offers payload. Every
// field may be absent; consumers must check before use.
type RawOffer struct {
	Price       *RawPrice      `json:"price"`
	Itineraries []RawItinerary `json:"itineraries"`

	// DecodeErr is set when this entry could not be decoded into the shape
	// above. The rest of the batch is unaffected.
	DecodeErr error `json:"-"`
}

type RawPrice struct {
	Total    json.Number `json:"total"`
	Currency string      `json:"currency"`
}

type RawItinerary struct {
	Duration string       `json:"duration"` // ISO8601 e.g. PT2H10M
	Segments []RawSegment `json:"segments"`
}

type RawSegment struct {
	Departure   RawEndpoint `json:"departure"`
	Arrival     RawEndpoint `json:"arrival"`
	CarrierCode string      `json:"carrierCode"`
	Number      string      `json:"number"`
}

type RawEndpoint struct {
	IATACode string `json:"iataCode"`
	At       string `json:"at"`
}

func (o *RawOffer) UnmarshalJSON(b []byte) error {
	type plain RawOffer
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		*o = RawOffer{DecodeErr: err}
		return nil
	}
	*o = RawOffer(p)
	return nil
}

// HTTPError is a non-2xx answer from a provider endpoint.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}
