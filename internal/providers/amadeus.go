package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/you/go-voice-flights/internal/config"
)

const dateLayout = "2006-01-02"

type Amadeus struct {
	host       string
	searchPath string
	client     *http.Client
	tokens     TokenSource
	max        int
	currency   string
}

func NewAmadeus(cfg *config.Config, tokens TokenSource, client *http.Client) *Amadeus {
	if client == nil {
		client = http.DefaultClient
	}
	return &Amadeus{
		host:       cfg.AmadeusURL,
		searchPath: "/v2/shopping/flight-offers",
		client:     client,
		tokens:     tokens,
		max:        cfg.MaxFlightResults,
		currency:   cfg.DefaultCurrency,
	}
}

func (a *Amadeus) Name() string { return "amadeus" }

// Search returns the provider's offers in provider order. Token failures come
// back as produced by the TokenSource, non-2xx answers as *HTTPError and
// transport failures unwrapped.
func (a *Amadeus) Search(ctx context.Context, q SearchQuery) ([]RawOffer, error) {
	tok, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("originLocationCode", q.Origin)
	params.Set("destinationLocationCode", q.Destination)
	params.Set("departureDate", q.DepartureDate.Format(dateLayout))
	params.Set("adults", strconv.Itoa(q.Adults))
	params.Set("max", strconv.Itoa(a.max))
	params.Set("currencyCode", a.currency)
	if q.ReturnDate != nil {
		params.Set("returnDate", q.ReturnDate.Format(dateLayout))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.host+a.searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPError{
			Endpoint:   "flight-offers",
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
		}
	}

	var payload struct {
		Data []RawOffer `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// errorDetail condenses the provider's errors[] body into one line, e.g.
// "departureDate: INVALID DATE - Date/Time is in the past".
func errorDetail(body []byte) string {
	var env struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
			Source struct {
				Parameter string `json:"parameter"`
			} `json:"source"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Errors) == 0 {
		return strings.TrimSpace(string(body))
	}

	parts := make([]string, 0, len(env.Errors))
	for _, e := range env.Errors {
		msg := e.Title
		if e.Detail != "" {
			if msg != "" {
				msg += " - "
			}
			msg += e.Detail
		}
		if e.Source.Parameter != "" {
			msg = e.Source.Parameter + ": " + msg
		}
		if msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}
