package httpx

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/you/go-voice-flights/internal/apperr"
	"github.com/you/go-voice-flights/internal/logger"
)

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(origins, "*") {
				return true
			}
			return slices.Contains(origins, origin)
		},
	}
}

// VoiceWSHandler keeps a voice session open: every text frame holding
// {"args": {...}} is answered with a {"result": ...} frame. Bad frames get an
// error frame and the session continues.
func VoiceWSHandler(svc Searcher, origins []string) http.HandlerFunc {
	upgrader := newUpgrader(origins)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.C(r.Context()).Info().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()
		conn.SetReadLimit(64 << 10)

		log := logger.C(r.Context())
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info().Err(err).Msg("websocket read error")
				}
				return
			}

			var req voiceRequest
			if err := json.Unmarshal(msg, &req); err != nil || req.Args == nil {
				if err := conn.WriteJSON(apperr.Wire{Error: "expected {\"args\": {...}}"}); err != nil {
					return
				}
				continue
			}

			if err := conn.WriteJSON(runVoiceSearch(r, svc, *req.Args)); err != nil {
				log.Info().Err(err).Msg("websocket write error")
				return
			}
		}
	}
}
