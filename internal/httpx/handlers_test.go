package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/you/go-voice-flights/internal/apperr"
	"github.com/you/go-voice-flights/internal/auth"
	"github.com/you/go-voice-flights/internal/config"
	"github.com/you/go-voice-flights/internal/service"
)

type searcherStub struct {
	mu   sync.Mutex
	seen []service.SearchRequest
	res  service.Result
	err  error
}

func (s *searcherStub) Search(_ context.Context, req service.SearchRequest) (service.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, req)
	return s.res, s.err
}

func (s *searcherStub) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *searcherStub) calls() []service.SearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]service.SearchRequest(nil), s.seen...)
}

func openConfig() *config.Config {
	return &config.Config{CORSOrigins: []string{"*"}}
}

func okStub() *searcherStub {
	return &searcherStub{res: service.Result{
		Origin: "JFK", Destination: "LHR", OfferCount: 1, Rendered: 1,
		Narrative: "Great! I found 1 flight option from JFK to LHR:\n\n",
	}}
}

func TestHealth(t *testing.T) {
	cfg := openConfig()
	cfg.AmadeusClientID, cfg.AmadeusClientSecret = "id", "secret"
	srv := httptest.NewServer(NewRouter(cfg, okStub()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, true, body["amadeus_configured"])
	require.Equal(t, false, body["auth_enabled"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := httptest.NewServer(NewRouter(openConfig(), okStub()))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func postVoice(t *testing.T, url, body string) (int, voiceResponse) {
	t.Helper()
	resp, err := http.Post(url+"/api/flights/search", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out voiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestVoiceSearch(t *testing.T) {
	stub := okStub()
	srv := httptest.NewServer(NewRouter(openConfig(), stub))
	defer srv.Close()

	status, out := postVoice(t, srv.URL, `{"args":{"origin":"jfk","destination":"lhr","departure_date":"2025-06-01","adults":2}}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, stub.res.Narrative, out.Result)
	require.Empty(t, out.Error)

	seen := stub.calls()
	require.Len(t, seen, 1)
	require.Equal(t, "jfk", seen[0].Origin)
	require.NotNil(t, seen[0].Adults)
	require.Equal(t, 2, *seen[0].Adults)
}

func TestVoiceSearchSpeaksErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"validation", apperr.Validation("Invalid date format"), "I need valid flight information: Invalid date format"},
		{"unavailable", apperr.ProviderUnavailable(500, "boom"), "I'm having trouble searching for flights right now. Please try again."},
		{"foreign", errors.New("boom"), "Sorry, something went wrong with your flight search. Please try again."},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(NewRouter(openConfig(), &searcherStub{err: c.err}))
			defer srv.Close()

			status, out := postVoice(t, srv.URL, `{"args":{"origin":"JFK"}}`)
			require.Equal(t, http.StatusOK, status)
			require.Equal(t, c.want, out.Result)
			require.Equal(t, c.want, out.Error)
		})
	}
}

func TestVoiceSearchBadEnvelope(t *testing.T) {
	stub := okStub()
	srv := httptest.NewServer(NewRouter(openConfig(), stub))
	defer srv.Close()

	for _, body := range []string{`{`, `{}`, `[]`} {
		resp, err := http.Post(srv.URL+"/api/flights/search", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	require.Empty(t, stub.calls())
}

func TestSearchHandlerStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"validation", apperr.Validation("Invalid date format"), http.StatusBadRequest, "validation"},
		{"provider request", apperr.ProviderRequest(400, "bad code"), http.StatusUnprocessableEntity, "provider_request"},
		{"auth", apperr.Auth(401, "denied"), http.StatusBadGateway, "auth"},
		{"timeout", apperr.Transport("search", context.DeadlineExceeded), http.StatusGatewayTimeout, "provider_unavailable"},
		{"foreign", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stub := okStub()
			stub.err = c.err
			srv := httptest.NewServer(NewRouter(openConfig(), stub))
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/flights/search?origin=JFK&destination=LHR&departure_date=2025-06-01&adults=1")
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, c.status, resp.StatusCode)

			if c.err == nil {
				var res service.Result
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
				require.Equal(t, stub.res, res)
				return
			}
			var wire apperr.Wire
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&wire))
			require.Equal(t, apperr.Spoken(c.err), wire.Error)
			require.Equal(t, c.kind, wire.Kind)
		})
	}
}

func TestSearchHandlerRejectsNonNumericAdults(t *testing.T) {
	stub := okStub()
	srv := httptest.NewServer(NewRouter(openConfig(), stub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/flights/search?origin=JFK&destination=LHR&departure_date=2025-06-01&adults=two")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, stub.calls())
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/flights"
}

func TestVoiceWebsocketSession(t *testing.T) {
	stub := okStub()
	srv := httptest.NewServer(NewRouter(openConfig(), stub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"args":{"origin":"JFK","destination":"LHR","departure_date":"2025-06-01"}}`)))
	var out voiceResponse
	require.NoError(t, conn.ReadJSON(&out))
	require.Equal(t, stub.res.Narrative, out.Result)

	// a bad frame is answered and the session stays open
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var wire apperr.Wire
	require.NoError(t, conn.ReadJSON(&wire))
	require.NotEmpty(t, wire.Error)

	stub.fail(apperr.Validation("Invalid date format"))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"args":{"origin":"JFK","destination":"LHR","departure_date":"June"}}`)))
	out = voiceResponse{}
	require.NoError(t, conn.ReadJSON(&out))
	require.Equal(t, "I need valid flight information: Invalid date format", out.Result)
	require.Len(t, stub.calls(), 2)
}

func TestVoiceWebsocketRejectsForeignOrigin(t *testing.T) {
	cfg := openConfig()
	cfg.CORSOrigins = []string{"https://agent.example"}
	srv := httptest.NewServer(NewRouter(cfg, okStub()))
	defer srv.Close()

	h := http.Header{}
	h.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	h.Set("Origin", "https://agent.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	require.NoError(t, err)
	conn.Close()
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	cfg := openConfig()
	cfg.JWTSecret, cfg.JWTUser, cfg.JWTPassword = "s3cr3t", "demo", "demo123"
	srv := httptest.NewServer(NewRouter(cfg, okStub()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/flights/search", "application/json", strings.NewReader(`{"args":{}}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// health stays public
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tok, err := auth.IssueToken(cfg, "demo")
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/flights/search", strings.NewReader(`{"args":{"origin":"JFK"}}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+tok, nil)
	require.NoError(t, err)
	conn.Close()
}
