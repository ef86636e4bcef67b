package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// SessionCookie is the cookie the fake portal hands out on its landing
// page.
const SessionCookie = "ECOURTS_SESSID"

// FakePortal is an httptest server that imitates the eCourts portal.
//
// Routes are keyed by method and either the `p` query parameter
// ("POST casestatus/submitCaseNo") or, when there is none, the path
// ("GET /orders/2025/foo.pdf"). The landing page, the home page and the
// captcha image are served by default.
type FakePortal struct {
	Server *httptest.Server
	// Token is the app_token embedded in the landing and home pages.
	Token string

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	hits     map[string]int
	forms    map[string][]url.Values
	sessions int
}

func routeKey(r *http.Request) string {
	if p := r.URL.Query().Get("p"); p != "" {
		return r.Method + " " + p
	}
	return r.Method + " " + r.URL.Path
}

func NewFakePortal(t testing.TB) *FakePortal {
	t.Helper()
	p := &FakePortal{
		Token:  "0f1e2d3c4b5a69788796a5b4c3d2e1f0",
		routes: map[string]http.HandlerFunc{},
		hits:   map[string]int{},
		forms:  map[string][]url.Values{},
	}
	p.Handle("GET casestatus/index", p.landingPage)
	p.Handle("GET /ecourtindia_v6/", p.landingPage)
	p.Handle("GET /ecourtindia_v6/vendor/securimage/securimage_show.php", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(SessionCookie); err != nil {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG\r\n\x1a\ncaptcha"))
	})

	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Server.Close)
	return p
}

func (p *FakePortal) landingPage(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	token := p.Token
	p.mu.Unlock()
	if _, err := r.Cookie(SessionCookie); err != nil {
		p.mu.Lock()
		p.sessions++
		id := p.sessions
		p.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: fmt.Sprint(id), Path: "/"})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body><form id="caseForm">
<input type="hidden" name="app_token" id="app_token" value="%s">
<select id="sess_state_code" name="state_code">
<option value="0">Select state</option>
<option value="3">Karnataka</option>
<option value="1">Maharashtra</option>
</select>
</form></body></html>`, token)
}

// SetToken changes the token served on later landing pages.
func (p *FakePortal) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Token = token
}

// SessionOf returns the session cookie value `r` carries, empty when it has
// none.
func SessionOf(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (p *FakePortal) serve(w http.ResponseWriter, r *http.Request) {
	key := routeKey(r)
	r.ParseForm()

	p.mu.Lock()
	p.hits[key]++
	p.forms[key] = append(p.forms[key], r.PostForm)
	handler, ok := p.routes[key]
	p.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// URL is the portal base url, with a trailing slash.
func (p *FakePortal) URL() string {
	return p.Server.URL + "/"
}

// Handle replaces the handler for `route`.
func (p *FakePortal) Handle(route string, handler http.HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[route] = handler
}

// HandleJSON serves `body` encoded as JSON on `route`.
func (p *FakePortal) HandleJSON(route string, body any) {
	p.Handle(route, JSON(body))
}

// HandleSequence serves the handlers in order, one per request, the last
// one is repeated once the others are used up.
func (p *FakePortal) HandleSequence(route string, handlers ...http.HandlerFunc) {
	var mu sync.Mutex
	calls := 0
	p.Handle(route, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := min(calls, len(handlers)-1)
		calls++
		mu.Unlock()
		handlers[i](w, r)
	})
}

// Hits is the number of requests received on `route`.
func (p *FakePortal) Hits(route string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[route]
}

// Forms returns the form values of every request received on `route`.
func (p *FakePortal) Forms(route string) []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]url.Values, len(p.forms[route]))
	copy(out, p.forms[route])
	return out
}

// LastForm returns the form values of the latest request on `route`.
func (p *FakePortal) LastForm(route string) url.Values {
	forms := p.Forms(route)
	if len(forms) == 0 {
		return nil
	}
	return forms[len(forms)-1]
}

// Sessions is the number of session cookies handed out.
func (p *FakePortal) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions
}

// JSON is a handler that writes `body` as JSON.
func JSON(body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}

// Status is a handler that only writes `code`.
func Status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

// Raw is a handler that writes `body` with `contentType`.
func Raw(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}
}
