package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/you/go-voice-flights/internal/apperr"
	"github.com/you/go-voice-flights/internal/logger"
	"github.com/you/go-voice-flights/internal/providers"
	"github.com/you/go-voice-flights/internal/voice"
)

const dateLayout = "2006-01-02"

// SearchRequest is the trip as the caller sent it.
type SearchRequest struct {
	Origin        string `json:"origin" validate:"required,min=2"`
	Destination   string `json:"destination" validate:"required,min=2"`
	DepartureDate string `json:"departure_date" validate:"required,datetime=2006-01-02"`
	ReturnDate    string `json:"return_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Adults        *int   `json:"adults,omitempty" validate:"omitempty,min=1"`
}

// SearchCriteria is a validated, normalised SearchRequest.
type SearchCriteria struct {
	Origin        string
	Destination   string
	DepartureDate time.Time
	ReturnDate    *time.Time
	Adults        int
}

// Result is a rendered search.
type Result struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	OfferCount  int    `json:"offer_count"`
	Rendered    int    `json:"rendered"`
	Narrative   string `json:"narrative"`
}

type SearchService struct {
	source     providers.OfferSource
	timeout    time.Duration
	voiceLimit int
}

func NewSearchService(source providers.OfferSource, timeout time.Duration, voiceLimit int) *SearchService {
	return &SearchService{
		source:     source,
		timeout:    timeout,
		voiceLimit: voiceLimit,
	}
}

// Validate checks req and returns normalised criteria. Return dates earlier
// than the departure date are accepted and left to the provider.
func (s *SearchService) Validate(req SearchRequest) (SearchCriteria, error) {
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	req.DepartureDate = strings.TrimSpace(req.DepartureDate)
	req.ReturnDate = strings.TrimSpace(req.ReturnDate)

	if err := getChecker().check(req); err != nil {
		return SearchCriteria{}, err
	}

	// formats were checked above
	dep, _ := time.Parse(dateLayout, req.DepartureDate)
	c := SearchCriteria{
		Origin:        strings.ToUpper(req.Origin),
		Destination:   strings.ToUpper(req.Destination),
		DepartureDate: dep,
		Adults:        1,
	}
	if req.ReturnDate != "" {
		ret, _ := time.Parse(dateLayout, req.ReturnDate)
		c.ReturnDate = &ret
	}
	if req.Adults != nil {
		c.Adults = *req.Adults
	}
	return c, nil
}

// Query fetches the provider's offers for c within the configured timeout and
// classifies failures.
func (s *SearchService) Query(ctx context.Context, c SearchCriteria) ([]providers.RawOffer, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	offers, err := s.source.Search(ctx, providers.SearchQuery{
		Origin:        c.Origin,
		Destination:   c.Destination,
		DepartureDate: c.DepartureDate,
		ReturnDate:    c.ReturnDate,
		Adults:        c.Adults,
	})
	if err != nil {
		err = classify(err)
		logger.C(ctx).Warn().Err(err).
			Str("provider", s.source.Name()).
			Str("origin", c.Origin).
			Str("destination", c.Destination).
			Msg("flight search failed")
		return nil, err
	}
	return offers, nil
}

func classify(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	var he *providers.HTTPError
	if errors.As(err, &he) {
		if he.StatusCode == http.StatusBadRequest {
			detail := he.Detail
			if detail == "" {
				detail = "the provider rejected the request"
			}
			return apperr.ProviderRequest(he.StatusCode, detail)
		}
		return apperr.ProviderUnavailable(he.StatusCode, fmt.Sprintf("flight search failed: %s", he.Detail))
	}
	return apperr.Transport("flight search", err)
}

// Search validates req, queries the provider and renders the offers for
// voice.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (Result, error) {
	c, err := s.Validate(req)
	if err != nil {
		return Result{}, err
	}
	offers, err := s.Query(ctx, c)
	if err != nil {
		return Result{}, err
	}

	limit := s.voiceLimit
	if limit <= 0 {
		limit = voice.DefaultResultLimit
	}
	return Result{
		Origin:      c.Origin,
		Destination: c.Destination,
		OfferCount:  len(offers),
		Rendered:    min(len(offers), limit),
		Narrative:   voice.Render(offers, c.Origin, c.Destination, limit),
	}, nil
}
