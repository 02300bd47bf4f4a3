// Package voice renders provider offers as short text for text-to-speech.
package voice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/you/go-voice-flights/internal/logger"
	"github.com/you/go-voice-flights/internal/providers"
)

// DefaultResultLimit is used when Render is given a non-positive limit.
const DefaultResultLimit = 3

const closing = "Would you like me to search for different dates or provide more details?"

// Offer is the spoken view of one provider offer.
type Offer struct {
	Price         string    `json:"price"`
	Currency      string    `json:"currency"`
	DepartureCode string    `json:"departure_code"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalCode   string    `json:"arrival_code"`
	ArrivalTime   time.Time `json:"arrival_time"`
	FlightNumber  string    `json:"flight_number"`
	Duration      string    `json:"duration,omitempty"`
	Stops         int       `json:"stops"`
}

// Extract builds an Offer from the first itinerary of raw. Any missing or
// unparsable field is an error.
func Extract(raw providers.RawOffer) (Offer, error) {
	if raw.DecodeErr != nil {
		return Offer{}, fmt.Errorf("undecodable offer: %w", raw.DecodeErr)
	}
	if raw.Price == nil || raw.Price.Total == "" {
		return Offer{}, errors.New("missing price")
	}
	if raw.Price.Currency == "" {
		return Offer{}, errors.New("missing currency")
	}
	if len(raw.Itineraries) == 0 {
		return Offer{}, errors.New("no itineraries")
	}
	itin := raw.Itineraries[0]
	if len(itin.Segments) == 0 {
		return Offer{}, errors.New("itinerary without segments")
	}
	first := itin.Segments[0]
	last := itin.Segments[len(itin.Segments)-1]

	if first.Departure.IATACode == "" || last.Arrival.IATACode == "" {
		return Offer{}, errors.New("missing airport code")
	}
	if first.CarrierCode == "" || first.Number == "" {
		return Offer{}, errors.New("missing carrier or flight number")
	}
	depart, err := parseTimestamp(first.Departure.At)
	if err != nil {
		return Offer{}, fmt.Errorf("departure: %w", err)
	}
	arrive, err := parseTimestamp(last.Arrival.At)
	if err != nil {
		return Offer{}, fmt.Errorf("arrival: %w", err)
	}

	var dur string
	if itin.Duration != "" {
		if dur, err = spokenDuration(itin.Duration); err != nil {
			return Offer{}, err
		}
	}

	return Offer{
		Price:         raw.Price.Total.String(),
		Currency:      raw.Price.Currency,
		DepartureCode: first.Departure.IATACode,
		DepartureTime: depart,
		ArrivalCode:   last.Arrival.IATACode,
		ArrivalTime:   arrive,
		FlightNumber:  first.CarrierCode + first.Number,
		Duration:      dur,
		Stops:         len(itin.Segments) - 1,
	}, nil
}

// StopPhrase says how many stops a flight makes.
func StopPhrase(stops int) string {
	switch {
	case stops <= 0:
		return "non-stop"
	case stops == 1:
		return "1 stop"
	default:
		return fmt.Sprintf("%d stops", stops)
	}
}

// Render describes at most limit offers from origin to destination. It never
// fails: an offer that cannot be described becomes a placeholder line.
func Render(offers []providers.RawOffer, origin, destination string, limit int) string {
	if len(offers) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find any flights from %s to %s. Please try different dates or destinations.", origin, destination)
	}
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	if len(offers) > limit {
		offers = offers[:limit]
	}

	noun := "flight options"
	if len(offers) == 1 {
		noun = "flight option"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Great! I found %d %s from %s to %s:\n\n", len(offers), noun, origin, destination)
	for i, raw := range offers {
		block, err := renderOption(i+1, raw)
		if err != nil {
			logger.Named("voice").Warn().Err(err).Int("option", i+1).Msg("offer formatting failed")
			block = fmt.Sprintf("Option %d: flight available\n\n", i+1)
		}
		b.WriteString(block)
	}
	b.WriteString(closing)
	return b.String()
}

func renderOption(n int, raw providers.RawOffer) (block string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic rendering offer: %v", r)
		}
	}()

	o, err := Extract(raw)
	if err != nil {
		return "", err
	}

	summary := StopPhrase(o.Stops)
	if o.Duration != "" {
		summary = "Duration: " + o.Duration + ", " + summary
	} else {
		summary = strings.ToUpper(summary[:1]) + summary[1:]
	}

	return fmt.Sprintf("Option %d: %s for %s %s\nDeparts %s at %s, arrives %s at %s\n%s\n\n",
		n, o.FlightNumber, o.Price, o.Currency,
		o.DepartureCode, spokenTime(o.DepartureTime),
		o.ArrivalCode, spokenTime(o.ArrivalTime),
		summary), nil
}
