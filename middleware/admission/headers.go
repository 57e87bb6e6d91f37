package admission

import (
	"net/http"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Headers de rate limit anexados a toda resposta de API, permitida ou negada.
const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
	headerResponseTime       = "X-Response-Time"
)

// Conjunto fixo de headers de segurança aplicados a TODA resposta, permitida
// ou negada, API ou página. Os dois últimos marcam a versão da política para
// correlação em auditoria.
var securityHeaders = [...]struct{ name, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Strict-Transport-Security", "max-age=63072000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'self'; script-src 'self'; object-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	{"X-Security-Policy", "admission-gateway"},
	{"X-Security-Policy-Version", "v1"},
}

func applySecurityHeaders(h http.Header) {
	for _, sh := range securityHeaders {
		h.Set(sh.name, sh.value)
	}
}

// applyRateHeaders decora a resposta de API com o estado da janela.
// Reset é o fim da janela em epoch-ms.
func applyRateHeaders(h http.Header, dec domain.Decision, start time.Time) {
	h.Set(headerRateLimitLimit, formatInt(dec.Limit))
	h.Set(headerRateLimitRemaining, formatInt(dec.Remaining))
	h.Set(headerRateLimitReset, formatEpochMillis(dec.ResetAt))
	h.Set(headerResponseTime, formatDurationMillis(time.Since(start)))
}
