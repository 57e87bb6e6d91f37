package admission

import (
	"encoding/json"
	"net/http"
	"time"
)

// denialBody é o corpo estruturado de toda negação desta camada.
// retryAfter (segundos) só aparece em negação por rate limit.
type denialBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// writeDenial curto-circuita a requisição com status 429 ou 403 e corpo JSON.
// Os headers de segurança já foram aplicados na entrada do pipeline.
func writeDenial(w http.ResponseWriter, status int, msg string, retryAfter time.Duration) {
	body := denialBody{Error: msg}
	if retryAfter > 0 {
		secs := int(retryAfter / time.Second)
		if secs < 1 {
			secs = 1
		}
		body.RetryAfter = secs
		w.Header().Set("Retry-After", formatInt(secs))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
