package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/delivery"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

// scriptedClient answers every send with the configured result.
type scriptedClient struct {
	mu     sync.Mutex
	err    error
	sent   []delivery.TemplateParams
	gate   chan struct{}
	called chan struct{}
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{called: make(chan struct{}, 16)}
}

func (c *scriptedClient) Send(ctx context.Context,
	params delivery.TemplateParams) fn.Result[delivery.Receipt] {

	c.mu.Lock()
	c.sent = append(c.sent, params)
	err, gate := c.err, c.gate
	c.mu.Unlock()

	c.called <- struct{}{}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return fn.Err[delivery.Receipt](ctx.Err())
		}
	}

	if err != nil {
		return fn.Err[delivery.Receipt](err)
	}

	return fn.Ok(delivery.Receipt{Status: 200, Text: "OK"})
}

// testClock is a settable clock shared with the server goroutines.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *scriptedClient) failWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *scriptedClient) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// webTestHarness runs a Server behind httptest with a cookie-keeping
// client that does not follow redirects.
type webTestHarness struct {
	t        *testing.T
	server   *Server
	http     *httptest.Server
	client   *http.Client
	delivery *scriptedClient
	clock    *testClock
}

func newWebTestHarness(t *testing.T, mutate ...func(*Config)) *webTestHarness {
	t.Helper()

	dc := newScriptedClient()
	clock := &testClock{now: testNow}

	cfg := DefaultConfig()
	cfg.Client = dc
	cfg.Clock = clock.Now
	cfg.SubmitWait = 5 * time.Second
	cfg.SubmitRate = 100
	cfg.SubmitBurst = 100
	for _, m := range mutate {
		m(cfg)
	}

	server, err := NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		server.sessions.CloseAll()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &webTestHarness{
		t:      t,
		server: server,
		http:   ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		delivery: dc,
		clock:    clock,
	}
}

func (h *webTestHarness) get(path string) (*http.Response, string) {
	h.t.Helper()

	resp, err := h.client.Get(h.http.URL + path)
	require.NoError(h.t, err)

	return resp, readBody(h.t, resp)
}

func (h *webTestHarness) postForm(path string,
	values url.Values) (*http.Response, string) {

	h.t.Helper()

	resp, err := h.client.PostForm(h.http.URL+path, values)
	require.NoError(h.t, err)

	return resp, readBody(h.t, resp)
}

func (h *webTestHarness) postEvent(req ContactEventRequest) (int,
	map[string]json.RawMessage) {

	h.t.Helper()

	body, err := json.Marshal(req)
	require.NoError(h.t, err)

	resp, err := h.client.Post(
		h.http.URL+"/api/v1/contact/events", "application/json",
		bytes.NewReader(body),
	)
	require.NoError(h.t, err)

	var out map[string]json.RawMessage
	require.NoError(h.t, json.Unmarshal([]byte(readBody(h.t, resp)), &out))

	return resp.StatusCode, out
}

// apiSnapshot fetches the session's form through the JSON API.
func (h *webTestHarness) apiSnapshot() contact.Snapshot {
	h.t.Helper()

	resp, body := h.get("/api/v1/contact")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data contact.Snapshot `json:"data"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(body), &out))

	return out.Data
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

func validValues() url.Values {
	return url.Values{
		"name":    {"Jo"},
		"phone":   {"1234567890"},
		"email":   {"a@b.co"},
		"message": {"hi"},
		"action":  {"submit"},
	}
}

func TestHomePage(t *testing.T) {
	h := newWebTestHarness(t)

	resp, body := h.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Contains(t, body, `<a href="/" class="active" aria-current="page">Home</a>`)
	require.Contains(t, body, `<a href="/contact">Contact</a>`)
	require.Contains(t, body, "Create an Account")
	require.Contains(t, body, `class="sticky-contact" href="/contact"`)
	require.Contains(t, body, "© 2026 DREV. All rights reserved.")
	require.Contains(t, body, `id="features"`)
	require.Contains(t, body, `href="#top"`)

	// The drawer is closed until asked for.
	require.NotContains(t, body, "Explore the Demo")
}

func TestHomePageDrawer(t *testing.T) {
	h := newWebTestHarness(t)

	_, body := h.get("/?menu=open")
	require.Contains(t, body, `<a href="/demo">Explore the Demo</a>`)
	require.Contains(t, body, `<a href="/signin">Sign In</a>`)
}

func TestUnknownPage(t *testing.T) {
	h := newWebTestHarness(t)

	resp, body := h.get("/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, body, "Page not found")
}

func TestContactPageStartsSession(t *testing.T) {
	h := newWebTestHarness(t)

	resp, body := h.get("/contact")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Send us a message")
	require.Contains(t, body, `placeholder="Phone Number"`)
	require.Contains(t, body, `<a href="/contact" class="active" aria-current="page">Contact</a>`)

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			found = true
			require.True(t, c.HttpOnly)
		}
	}
	require.True(t, found)
	require.Equal(t, 1, h.server.sessions.Len())

	// The cookie brings the visitor back to the same form.
	h.get("/contact")
	require.Equal(t, 1, h.server.sessions.Len())
}

func TestContactPostSuccess(t *testing.T) {
	h := newWebTestHarness(t)

	resp, _ := h.postForm("/contact", validValues())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/contact", resp.Header.Get("Location"))

	_, body := h.get("/contact")
	require.Contains(t, body, "Message Sent Successfully!")
	require.Contains(t, body, "a@b.co")
	require.Contains(t, body, "Thank you for reaching out!")
	require.Equal(t, 1, h.delivery.sentCount())
}

func TestContactPostInvalid(t *testing.T) {
	h := newWebTestHarness(t)

	values := validValues()
	values.Set("phone", "12345")

	resp, body := h.postForm("/contact", values)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, body, incompleteNotice)
	require.Contains(t, body, contact.Describe(contact.FieldPhone))
	require.Zero(t, h.delivery.sentCount())
}

func TestContactPostFailureKeepsValues(t *testing.T) {
	h := newWebTestHarness(t)
	h.delivery.failWith(errors.New("rejected"))

	resp, _ := h.postForm("/contact", validValues())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := h.get("/contact")
	require.Contains(t, body, contact.DeliveryFailedMessage)
	require.Contains(t, body, `value="1234567890"`)
}

func TestContactPostBackToHome(t *testing.T) {
	h := newWebTestHarness(t)

	h.postForm("/contact", validValues())

	resp, _ := h.postForm("/contact", url.Values{"action": {"home"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	snap := h.apiSnapshot()
	require.Equal(t, contact.StateNameEditing, snap.State)
	require.Equal(t, contact.FormData{}, snap.Values)
}

func TestContactPostSendAnother(t *testing.T) {
	h := newWebTestHarness(t)

	h.postForm("/contact", validValues())

	resp, _ := h.postForm("/contact", url.Values{
		"action": {"send_another"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/contact", resp.Header.Get("Location"))

	_, body := h.get("/contact")
	require.Contains(t, body, "Send us a message")
	require.NotContains(t, body, `value="Jo"`)
}

func TestContactPostUnknownAction(t *testing.T) {
	h := newWebTestHarness(t)

	resp, _ := h.postForm("/contact", url.Values{"action": {"dance"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIContactFlow(t *testing.T) {
	h := newWebTestHarness(t)

	snap := h.apiSnapshot()
	require.Equal(t, contact.StateNameEditing, snap.State)
	require.False(t, snap.CanSubmit)

	for _, f := range contact.Fields {
		status, _ := h.postEvent(ContactEventRequest{
			Type:  "change",
			Field: f.String(),
			Value: validValues().Get(f.String()),
		})
		require.Equal(t, http.StatusOK, status)
	}

	status, _ := h.postEvent(ContactEventRequest{
		Type: "focus", Field: "email",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, contact.FieldEmail, h.apiSnapshot().Focused)

	status, out := h.postEvent(ContactEventRequest{Type: "submit"})
	require.Equal(t, http.StatusOK, status)

	var resp ContactEventResponse
	require.NoError(t, json.Unmarshal(out["data"], &resp))
	require.NotEqual(t, contact.StateNameEditing, resp.Form.State)

	require.Eventually(t, func() bool {
		return h.apiSnapshot().State == contact.StateNameSubmitted
	}, 5*time.Second, 10*time.Millisecond)

	snap = h.apiSnapshot()
	require.Equal(t, 200, snap.Summary.Status)
	require.Equal(t, "OK", snap.Summary.StatusText)
	require.Equal(t, testNow, snap.Summary.SubmittedAt)

	status, out = h.postEvent(ContactEventRequest{Type: "back_to_home"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(out["data"], &resp))
	require.Equal(t, "/", resp.Redirect)
}

func TestAPIContactEventErrors(t *testing.T) {
	h := newWebTestHarness(t)

	status, out := h.postEvent(ContactEventRequest{Type: "dance"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, string(out["error"]), "unknown_event")

	status, out = h.postEvent(ContactEventRequest{
		Type: "change", Field: "fax",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, string(out["error"]), "invalid_field")

	resp, err := h.client.Post(
		h.http.URL+"/api/v1/contact/events", "application/json",
		strings.NewReader("{"),
	)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, _ = h.get("/api/v1/contact/events")
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPIHealth(t *testing.T) {
	h := newWebTestHarness(t)

	resp, body := h.get("/api/v1/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Contains(t, body, `"status":"ok"`)
}

func TestSubmitRateLimited(t *testing.T) {
	h := newWebTestHarness(t, func(cfg *Config) {
		cfg.SubmitRate = 0.001
		cfg.SubmitBurst = 1
	})

	resp, _ := h.postForm("/contact", validValues())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	h.postForm("/contact", url.Values{"action": {"send_another"}})

	resp, body := h.postForm("/contact", validValues())
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Contains(t, body, "several messages")
	require.Equal(t, 1, h.delivery.sentCount())

	// The API shares the same budget.
	status, _ := h.postEvent(ContactEventRequest{Type: "submit"})
	require.Equal(t, http.StatusTooManyRequests, status)
}

func TestSessionExpiryClosesForm(t *testing.T) {
	h := newWebTestHarness(t)

	gate := make(chan struct{})
	h.delivery.mu.Lock()
	h.delivery.gate = gate
	h.delivery.mu.Unlock()
	defer close(gate)

	h.get("/contact")
	for _, f := range contact.Fields {
		h.postEvent(ContactEventRequest{
			Type: "change", Field: f.String(),
			Value: validValues().Get(f.String()),
		})
	}
	h.postEvent(ContactEventRequest{Type: "submit"})
	<-h.delivery.called

	var form *contact.Controller
	h.server.sessions.mu.Lock()
	for _, sess := range h.server.sessions.sessions {
		form = sess.form
	}
	h.server.sessions.mu.Unlock()
	require.NotNil(t, form)

	h.clock.Advance(time.Hour)
	require.Equal(t, 1, h.server.sessions.Expire())
	require.True(t, form.Closed())
	require.Zero(t, h.server.sessions.Len())

	// The old cookie no longer matches, so the visitor gets a fresh form.
	snap := h.apiSnapshot()
	require.Equal(t, contact.StateNameEditing, snap.State)
	require.Equal(t, contact.FormData{}, snap.Values)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newWebTestHarness(t)

	h.postEvent(ContactEventRequest{Type: "blur"})

	resp, body := h.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "finreveal_contact_events_total")
	require.Contains(t, body, "finreveal_sessions 1")
}

func TestLimiterPrune(t *testing.T) {
	t.Parallel()

	now := testNow
	l := newSubmitLimiter(0.001, 1, time.Minute)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("10.0.0.1"))
	require.False(t, l.Allow("10.0.0.1"))
	require.True(t, l.Allow("10.0.0.2"))

	now = now.Add(2 * time.Minute)
	require.Equal(t, 2, l.Prune())

	// A pruned address starts with a full bucket.
	require.True(t, l.Allow("10.0.0.1"))
}

func TestClientHost(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	require.Equal(t, "192.0.2.7", clientHost(r))

	r.RemoteAddr = "weird"
	require.Equal(t, "weird", clientHost(r))
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

// sessionForms returns the form of every live session by id.
func (h *webTestHarness) sessionForms() map[string]*contact.Controller {
	h.server.sessions.mu.Lock()
	defer h.server.sessions.mu.Unlock()

	forms := make(map[string]*contact.Controller)
	for id, sess := range h.server.sessions.sessions {
		forms[id] = sess.form
	}

	return forms
}

func TestSessionCapEvictsLeastRecent(t *testing.T) {
	h := newWebTestHarness(t, func(cfg *Config) {
		cfg.MaxSessions = 3
	})

	// Each request without a cookie is a new visitor.
	var (
		first *contact.Controller
		seen  = make(map[string]*contact.Controller)
	)
	for i := 0; i < 20; i++ {
		h.clock.Advance(time.Second)

		resp, err := http.Get(h.http.URL + "/contact")
		require.NoError(t, err)
		readBody(t, resp)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.LessOrEqual(t, h.server.sessions.Len(), 3)

		for id, form := range h.sessionForms() {
			if _, ok := seen[id]; !ok && first == nil {
				first = form
			}
			seen[id] = form
		}
	}

	require.Equal(t, 3, h.server.sessions.Len())
	require.Len(t, seen, 20)
	require.True(t, first.Closed())

	live := h.sessionForms()
	var closed int
	for id, form := range seen {
		if _, ok := live[id]; ok {
			require.False(t, form.Closed())
			continue
		}
		require.True(t, form.Closed())
		closed++
	}
	require.Equal(t, 17, closed)

	_, body := h.get("/metrics")
	require.Contains(t, body, "finreveal_sessions_evicted_total 17")
}

func TestSessionCapKeepsRecentVisitor(t *testing.T) {
	h := newWebTestHarness(t, func(cfg *Config) {
		cfg.MaxSessions = 2
	})

	// The harness client keeps its cookie and comes back after each new
	// visitor, so it is never the least recently seen.
	h.get("/contact")
	for i := 0; i < 5; i++ {
		h.clock.Advance(time.Second)
		resp, err := http.Get(h.http.URL + "/contact")
		require.NoError(t, err)
		readBody(t, resp)

		h.clock.Advance(time.Second)
		h.postEvent(ContactEventRequest{
			Type: "change", Field: "name", Value: "Jo",
		})
	}

	require.Equal(t, 2, h.server.sessions.Len())
	require.Equal(t, "Jo", h.apiSnapshot().Values.Name)
}

func TestAPIContactWithoutCookieCreatesNoSession(t *testing.T) {
	h := newWebTestHarness(t)

	for i := 0; i < 10; i++ {
		resp, err := http.Get(h.http.URL + "/api/v1/contact")
		require.NoError(t, err)

		var out struct {
			Data contact.Snapshot `json:"data"`
			Meta APIMeta          `json:"meta"`
		}
		require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &out))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, contact.StateNameEditing, out.Data.State)
		require.Equal(t, contact.FormData{}, out.Data.Values)
		require.Empty(t, out.Meta.Session)
		require.Empty(t, resp.Cookies())
	}

	require.Zero(t, h.server.sessions.Len())
}

// doWithOrigin sends a request carrying the given Origin header.
func (h *webTestHarness) doWithOrigin(method, path, origin string,
	body io.Reader) (*http.Response, string) {

	h.t.Helper()

	req, err := http.NewRequest(method, h.http.URL+path, body)
	require.NoError(h.t, err)
	req.Header.Set("Origin", origin)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	require.NoError(h.t, err)

	return resp, readBody(h.t, resp)
}

func TestAPIRejectsForeignOrigin(t *testing.T) {
	h := newWebTestHarness(t)

	resp, body := h.doWithOrigin(
		http.MethodPost, "/api/v1/contact/events", "http://evil.example",
		strings.NewReader(`{"type":"change","field":"name","value":"x"}`),
	)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, body, "forbidden_origin")
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Zero(t, h.server.sessions.Len())

	resp, _ = h.doWithOrigin(
		http.MethodOptions, "/api/v1/contact/events",
		"http://evil.example", nil,
	)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPIAllowsOwnOrigin(t *testing.T) {
	h := newWebTestHarness(t)

	resp, _ := h.doWithOrigin(
		http.MethodPost, "/api/v1/contact/events", h.http.URL,
		strings.NewReader(`{"type":"change","field":"name","value":"x"}`),
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, h.http.URL,
		resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", resp.Header.Get("Vary"))
	require.Equal(t, 1, h.server.sessions.Len())

	resp, _ = h.doWithOrigin(
		http.MethodOptions, "/api/v1/contact/events", h.http.URL, nil,
	)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestContactPostRejectsForeignOrigin(t *testing.T) {
	h := newWebTestHarness(t)

	req, err := http.NewRequest(
		http.MethodPost, h.http.URL+"/contact",
		strings.NewReader(validValues().Encode()),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "http://evil.example")

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	readBody(t, resp)

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Zero(t, h.delivery.sentCount())
}
