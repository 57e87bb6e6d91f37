package admission

import "net/http"

// SessionProvider é o contrato com o provedor de autenticação externo.
// Esta camada trata ambos os primitivos como opacos: não inspeciona o
// conteúdo da sessão nem reinterpreta o contrato de erro do provedor.
type SessionProvider interface {
	// HasSession indica se já existe sessão válida para a requisição.
	// Usado no atalho de redirect das páginas de sign-in/sign-up; não deve
	// bloquear em I/O externo sem timeout próprio do provedor.
	HasSession(r *http.Request) bool

	// Enforce envolve o handler com a exigência de sessão válida, aplicando
	// o contrato 401/redirect do próprio provedor quando não houver.
	Enforce(next http.Handler) http.Handler
}

// CookieSessionProvider é um provedor simples baseado em cookie de sessão.
// Útil para desenvolvimento e testes; em produção o provedor real é plugado
// pela mesma interface.
type CookieSessionProvider struct {
	CookieName string
	SignInURL  string
}

func (p CookieSessionProvider) HasSession(r *http.Request) bool {
	c, err := r.Cookie(p.CookieName)
	return err == nil && c.Value != ""
}

func (p CookieSessionProvider) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.HasSession(r) {
			http.Redirect(w, r, p.SignInURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
