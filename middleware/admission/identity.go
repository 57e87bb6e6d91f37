package admission

import (
	"net/http"
	"strings"
)

// IdentityFunc deriva a identidade estável do cliente a partir dos headers.
// A identidade é a chave de rate limit e de blocklist.
type IdentityFunc func(r *http.Request) string

// UnknownIdentity é a sentinela usada quando nenhum header confiável existe.
// A identidade nunca é vazia.
const UnknownIdentity = "unknown"

// Headers padrão de cadeia de IP. Só o salto confiável mais próximo é
// autoritativo; entradas tardias do X-Forwarded-For são controláveis pelo
// atacante e não servem como identidade.
const (
	defaultConnectingIPHeader = "CF-Connecting-IP"
	defaultRealIPHeader       = "X-Real-IP"
	forwardedForHeader        = "X-Forwarded-For"
)

// DefaultIdentityFunc extrai a identidade com a precedência: header do proxy
// de borda confiável, header genérico de real IP, primeira entrada do
// X-Forwarded-For, sentinela "unknown". Headers vazios usam os padrões.
func DefaultIdentityFunc(connectingIPHeader, realIPHeader string) IdentityFunc {
	if connectingIPHeader == "" {
		connectingIPHeader = defaultConnectingIPHeader
	}
	if realIPHeader == "" {
		realIPHeader = defaultRealIPHeader
	}

	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(connectingIPHeader)); v != "" {
			return v
		}
		if v := strings.TrimSpace(r.Header.Get(realIPHeader)); v != "" {
			return v
		}

		// primeira entrada do X-Forwarded-For = cliente original
		if xff := r.Header.Get(forwardedForHeader); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		return UnknownIdentity
	}
}
