package admission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

type fakeAuth struct {
	hasSession bool
	enforced   bool
}

func (f *fakeAuth) HasSession(r *http.Request) bool { return f.hasSession }

func (f *fakeAuth) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.enforced = true
		if !f.hasSession {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newTestOptions(t *testing.T) Options {
	t.Helper()

	resolver, err := application.NewResolver("/api/", []domain.Rule{
		{PathPrefix: "/api/", Window: time.Minute, MaxRequests: 60},
		{PathPrefix: "/api/checkout", Window: 15 * time.Minute, MaxRequests: 10},
		{PathPrefix: "/api/webhooks", Window: time.Minute, MaxRequests: 1, SkipOnSuccess: true},
	})
	if err != nil {
		t.Fatalf("resolver error: %v", err)
	}

	return Options{
		Resolver:  resolver,
		Store:     infra.NewMemoryStore(),
		Inspector: application.NewInspector([]string{"6.6.6.6"}),
		Classifier: application.NewClassifier(application.ClassifierConfig{
			PublicRoutes:     []string{"/", "/products", "/sign-in", "/sign-up"},
			ProtectedRoutes:  []string{"/dashboard"},
			AdminRoutes:      []string{"/admin"},
			StaticPrefixes:   []string{"/static/"},
			StaticExtensions: []string{".css", ".js"},
		}),
		SignInPath:  "/sign-in",
		SignUpPath:  "/sign-up",
		LandingPath: "/dashboard",
	}
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func doRequest(h http.Handler, method, target, identity string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	if identity != "" {
		r.Header.Set("CF-Connecting-IP", identity)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func assertSecurityHeaders(t *testing.T, h http.Header) {
	t.Helper()
	for _, name := range []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"X-XSS-Protection",
		"Strict-Transport-Security",
		"Content-Security-Policy",
		"Referrer-Policy",
		"Permissions-Policy",
		"X-Security-Policy",
		"X-Security-Policy-Version",
	} {
		if h.Get(name) == "" {
			t.Fatalf("expected security header %s to be set", name)
		}
	}
}

func TestMiddleware_SecurityHeadersOnEveryResponse(t *testing.T) {
	h := Middleware(newTestOptions(t))(okHandler(nil))

	// permitida (página), permitida (API), negada (blocklist), estática
	for _, tc := range []struct{ target, identity string }{
		{"http://example/products", "1.2.3.4"},
		{"http://example/api/items", "1.2.3.4"},
		{"http://example/api/items", "6.6.6.6"},
		{"http://example/static/app.css", "1.2.3.4"},
	} {
		w := doRequest(h, http.MethodGet, tc.target, tc.identity)
		assertSecurityHeaders(t, w.Header())
	}
}

func TestMiddleware_APIResponsesCarryRateHeaders(t *testing.T) {
	h := Middleware(newTestOptions(t))(okHandler(nil))

	w := doRequest(h, http.MethodGet, "http://example/api/items", "1.2.3.4")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Fatalf("expected limit=60, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "59" {
		t.Fatalf("expected remaining=59, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Reset"); got == "" {
		t.Fatalf("expected reset header (epoch-ms)")
	}
	if got := w.Header().Get("X-Response-Time"); got == "" {
		t.Fatalf("expected response time header")
	}
}

func TestMiddleware_PageResponsesHaveNoRateHeaders(t *testing.T) {
	h := Middleware(newTestOptions(t))(okHandler(nil))

	w := doRequest(h, http.MethodGet, "http://example/products", "1.2.3.4")
	if got := w.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Fatalf("page paths must not carry rate headers, got %q", got)
	}
}

// Cenário A na camada HTTP: 10 passam em /api/checkout, a 11ª leva 429 com
// corpo JSON estruturado e retryAfter > 0.
func TestMiddleware_RateLimitDenial(t *testing.T) {
	calls := 0
	h := Middleware(newTestOptions(t))(okHandler(&calls))

	for i := 0; i < 10; i++ {
		w := doRequest(h, http.MethodGet, "http://example/api/checkout", "X")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := doRequest(h, http.MethodGet, "http://example/api/checkout", "X")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if calls != 10 {
		t.Fatalf("expected next handler called 10 times, got %d", calls)
	}
	if got := w.Header().Get("Retry-After"); got == "" {
		t.Fatalf("expected Retry-After header")
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining=0 on denial, got %q", got)
	}

	var body struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retryAfter"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("denial body must be JSON: %v", err)
	}
	if body.Error == "" || body.RetryAfter <= 0 {
		t.Fatalf("expected structured denial, got %+v", body)
	}
}

// Cenário B: identidade na blocklist leva 403 em qualquer caminho de API,
// mesmo com cota sobrando.
func TestMiddleware_BlocklistPrecedesRateState(t *testing.T) {
	calls := 0
	h := Middleware(newTestOptions(t))(okHandler(&calls))

	w := doRequest(h, http.MethodGet, "http://example/api/anything", "6.6.6.6")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if calls != 0 {
		t.Fatalf("expected next handler not to be called")
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Fatalf("blocklist denial must bypass rate counting, got limit=%q", got)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Fatalf("expected structured denial body, got %q (err=%v)", w.Body.String(), err)
	}
}

// Heurística: nega em API, apenas loga em página.
func TestMiddleware_SuspicionPolicyDependsOnPath(t *testing.T) {
	calls := 0
	h := Middleware(newTestOptions(t))(okHandler(&calls))

	r := httptest.NewRequest(http.MethodGet, "http://example/api/items", nil)
	r.Header.Set("CF-Connecting-IP", "1.2.3.4")
	r.Header.Set("User-Agent", "sqlmap/1.7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on api path, got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "http://example/products", nil)
	r.Header.Set("CF-Connecting-IP", "1.2.3.4")
	r.Header.Set("User-Agent", "sqlmap/1.7")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected page path to proceed, got %d", w.Code)
	}
	if calls != 1 {
		t.Fatalf("expected next handler called only for the page request, got %d", calls)
	}
}

// Assets estáticos fazem bypass do pipeline, inclusive da blocklist.
func TestMiddleware_StaticBypass(t *testing.T) {
	calls := 0
	h := Middleware(newTestOptions(t))(okHandler(&calls))

	w := doRequest(h, http.MethodGet, "http://example/static/app.css", "6.6.6.6")
	if w.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected static asset forwarded, got code=%d calls=%d", w.Code, calls)
	}
}

// Cenário C: /dashboard (protegida) aciona o enforce do provedor;
// /products (pública) passa direto.
func TestMiddleware_AuthGate(t *testing.T) {
	opts := newTestOptions(t)
	auth := &fakeAuth{hasSession: false}
	opts.Auth = auth

	calls := 0
	h := Middleware(opts)(okHandler(&calls))

	w := doRequest(h, http.MethodGet, "http://example/dashboard", "1.2.3.4")
	if !auth.enforced {
		t.Fatalf("expected auth provider enforce to run")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected provider contract (401), got %d", w.Code)
	}
	if calls != 0 {
		t.Fatalf("expected handler not reached without session")
	}

	auth.enforced = false
	w = doRequest(h, http.MethodGet, "http://example/products", "1.2.3.4")
	if w.Code != http.StatusOK || auth.enforced {
		t.Fatalf("expected public path forwarded untouched, got code=%d enforced=%v", w.Code, auth.enforced)
	}
}

// Sessão já válida em /sign-in redireciona para o destino autenticado
// (anti-loop de login).
func TestMiddleware_SignInShortCircuitsWithSession(t *testing.T) {
	opts := newTestOptions(t)
	opts.Auth = &fakeAuth{hasSession: true}

	calls := 0
	h := Middleware(opts)(okHandler(&calls))

	w := doRequest(h, http.MethodGet, "http://example/sign-in", "1.2.3.4")
	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/dashboard" {
		t.Fatalf("expected redirect to landing path, got %q", got)
	}
	if calls != 0 {
		t.Fatalf("expected handler not reached")
	}
}

// skip_on_success: o hit é estornado quando a resposta é 2xx, então um
// endpoint com max=1 aceita chamadas sucessivas bem-sucedidas.
func TestMiddleware_SkipOnSuccessRefundsHit(t *testing.T) {
	h := Middleware(newTestOptions(t))(okHandler(nil))

	for i := 0; i < 3; i++ {
		w := doRequest(h, http.MethodPost, "http://example/api/webhooks", "hook-client")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected refund to keep quota, got %d", i+1, w.Code)
		}
	}
}

// Segurança sob concorrência na camada HTTP: N requisições simultâneas contra
// uma chave nova com max=N ⇒ exatamente N respostas 200.
func TestMiddleware_ConcurrentRequestsNoOverAdmission(t *testing.T) {
	const max = 16

	resolver, err := application.NewResolver("/api/", []domain.Rule{
		{PathPrefix: "/api/", Window: time.Minute, MaxRequests: max},
	})
	if err != nil {
		t.Fatalf("resolver error: %v", err)
	}
	opts := newTestOptions(t)
	opts.Resolver = resolver
	opts.Store = infra.NewMemoryStore()

	h := Middleware(opts)(okHandler(nil))

	var wg sync.WaitGroup
	codes := make(chan int, 2*max)
	for i := 0; i < 2*max; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doRequest(h, http.MethodGet, "http://example/api/items", "Z")
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	okCount, deniedCount := 0, 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			okCount++
		case http.StatusTooManyRequests:
			deniedCount++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if okCount != max || deniedCount != max {
		t.Fatalf("expected exactly %d admitted, got ok=%d denied=%d", max, okCount, deniedCount)
	}
}

// Falha do store não derruba a requisição (fail-open): admite sem headers de
// janela.
type failingStore struct{}

func (failingStore) Hit(context.Context, domain.Key, int, time.Duration) (domain.Counter, error) {
	return domain.Counter{}, errors.New("store unavailable")
}

func (failingStore) Refund(context.Context, domain.Key) error {
	return errors.New("store unavailable")
}

func TestMiddleware_FailsOpenOnStoreError(t *testing.T) {
	opts := newTestOptions(t)
	opts.Store = failingStore{}

	calls := 0
	h := Middleware(opts)(okHandler(&calls))

	w := doRequest(h, http.MethodGet, "http://example/api/items", "1.2.3.4")
	if w.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected fail-open admission, got code=%d calls=%d", w.Code, calls)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Fatalf("expected no rate headers when counting failed, got %q", got)
	}
}
