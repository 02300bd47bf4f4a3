package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/you/go-voice-flights/internal/apperr"
	"github.com/you/go-voice-flights/internal/config"
	"github.com/you/go-voice-flights/internal/logger"
	"github.com/you/go-voice-flights/internal/service"
)

// voiceRequest is the function-call envelope a voice agent posts.
type voiceRequest struct {
	Args *service.SearchRequest `json:"args"`
}

// voiceResponse always carries something speakable in Result. Error repeats
// it when the search failed so agents can branch on it.
type voiceResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Voice flight search API is running",
		"status":  "healthy",
	})
}

func HealthHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":             "healthy",
			"amadeus_configured": cfg.AmadeusConfigured(),
			"auth_enabled":       cfg.AuthEnabled(),
		})
	}
}

// VoiceSearchHandler answers {"args": {...}} with a narrative. Search
// failures are spoken back with status 200; only an unreadable envelope is a
// client error.
func VoiceSearchHandler(svc Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voiceRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apperr.Wire{Error: "invalid JSON body"})
			return
		}
		if req.Args == nil {
			writeJSON(w, http.StatusBadRequest, apperr.Wire{Error: "missing args"})
			return
		}
		writeJSON(w, http.StatusOK, runVoiceSearch(r, svc, *req.Args))
	}
}

func runVoiceSearch(r *http.Request, svc Searcher, req service.SearchRequest) voiceResponse {
	res, err := svc.Search(r.Context(), req)
	if err != nil {
		logSearchError(r, err)
		msg := apperr.Spoken(err)
		return voiceResponse{Result: msg, Error: msg}
	}
	return voiceResponse{Result: res.Narrative}
}

func logSearchError(r *http.Request, err error) {
	log := logger.C(r.Context())
	evt := log.Warn()
	if k := apperr.KindOf(err); k == apperr.KindValidation {
		evt = log.Info()
	} else if k == apperr.KindUnknown {
		evt = log.Error()
	}
	evt.Err(err).Str("kind", apperr.KindOf(err).String()).Msg("voice search failed")
}

// SearchHandler is the plain JSON variant:
// /flights/search?origin=JFK&destination=LHR&departure_date=2025-06-01[&return_date=][&adults=]
func SearchHandler(svc Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := service.SearchRequest{
			Origin:        q.Get("origin"),
			Destination:   q.Get("destination"),
			DepartureDate: q.Get("departure_date"),
			ReturnDate:    q.Get("return_date"),
		}
		if a := strings.TrimSpace(q.Get("adults")); a != "" {
			n, err := strconv.Atoi(a)
			if err != nil {
				status, wire := apperr.HTTP(apperr.Validation("adults must be a number"))
				writeJSON(w, status, wire)
				return
			}
			req.Adults = &n
		}

		res, err := svc.Search(r.Context(), req)
		if err != nil {
			logSearchError(r, err)
			status, wire := apperr.HTTP(err)
			writeJSON(w, status, wire)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
