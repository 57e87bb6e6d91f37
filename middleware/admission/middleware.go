package admission

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
)

// Options agrega as dependências do pipeline de admissão.
//
// Resolver, Store, Inspector e Classifier são imutáveis após o boot.
// Componentes nulos desabilitam a etapa correspondente (útil em testes);
// o gateway monta todos.
type Options struct {
	Resolver   *application.Resolver
	Store      domain.CounterStore
	Inspector  *application.Inspector
	Classifier *application.Classifier
	Auth       SessionProvider
	Stats      domain.StatsStore
	IdentityFn IdentityFunc
	Logger     *zap.Logger

	// Atalho anti-loop de login: com sessão já válida, as páginas de
	// sign-in/sign-up redirecionam para o destino autenticado.
	SignInPath  string
	SignUpPath  string
	LandingPath string

	// SecurityLogRPS/Burst limitam o log de eventos de segurança: um flood
	// de abuso não pode inundar o log. <=0 usa o padrão (5 rps, burst 10).
	SecurityLogRPS   float64
	SecurityLogBurst int
}

// Middleware monta o pipeline de admissão na ordem: bypass de estático →
// blocklist → heurística de abuso → (API) janela fixa → decoração →
// classificação de rota → autenticação. Toda negação curto-circuita com
// resposta JSON estruturada; nenhum panic atravessa esta camada.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.IdentityFn == nil {
		opts.IdentityFn = DefaultIdentityFunc("", "")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LandingPath == "" {
		opts.LandingPath = "/dashboard"
	}
	if opts.SecurityLogRPS <= 0 {
		opts.SecurityLogRPS = 5
	}
	if opts.SecurityLogBurst <= 0 {
		opts.SecurityLogBurst = 10
	}

	secLog := rate.NewLimiter(rate.Limit(opts.SecurityLogRPS), opts.SecurityLogBurst)
	limiter := application.Limiter{Store: opts.Store}

	record := func(r *http.Request, key domain.Key, allowed bool, reason string) {
		if opts.Stats == nil {
			return
		}
		_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
			Key:     key,
			Allowed: allowed,
			Reason:  reason,
			Method:  r.Method,
			Path:    r.URL.Path,
			At:      time.Now(),
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			applySecurityHeaders(w.Header())

			path := r.URL.Path
			if opts.Classifier != nil && opts.Classifier.Static(path) {
				next.ServeHTTP(w, r)
				return
			}

			identity := opts.IdentityFn(r)

			if opts.Inspector != nil && opts.Inspector.Blocklisted(identity) {
				if secLog.Allow() {
					opts.Logger.Warn("blocklisted identity denied",
						zap.String("identity", identity),
						zap.String("path", path))
				}
				record(r, domain.Key(identity), false, domain.ReasonBlocklist)
				writeDenial(w, http.StatusForbidden, "forbidden", 0)
				return
			}

			isAPI := opts.Resolver != nil && opts.Resolver.IsAPIPath(path)

			if opts.Inspector != nil {
				verdict := opts.Inspector.Inspect(r.UserAgent(), r.URL.RequestURI(), r.Referer())
				if verdict.Suspicious {
					if secLog.Allow() {
						opts.Logger.Warn("abuse signature matched",
							zap.String("identity", identity),
							zap.String("path", path),
							zap.String("pattern", verdict.Pattern),
							zap.Bool("api", isAPI))
					}
					// em páginas a heurística só loga: crawlers legítimos não
					// podem ser trancados fora de páginas públicas
					if isAPI {
						record(r, domain.Key(identity), false, domain.ReasonSuspicion)
						writeDenial(w, http.StatusForbidden, "forbidden", 0)
						return
					}
				}
			}

			var settle func(status int)
			if isAPI {
				rule, ok := opts.Resolver.Resolve(path)
				if ok && opts.Store != nil {
					key := domain.CounterKey(identity, rule)
					dec, err := limiter.Check(r.Context(), identity, rule)
					if err != nil {
						// store indisponível: admite sem headers de janela
						// (disponibilidade acima de precisão do limite)
						opts.Logger.Error("counter store unavailable, admitting request",
							zap.Error(err),
							zap.String("identity", identity),
							zap.String("path", path))
					} else {
						applyRateHeaders(w.Header(), dec, start)
						if !dec.Allowed {
							if dec.JustBlocked && secLog.Allow() {
								opts.Logger.Warn("rate limit exceeded, key blocked for the window",
									zap.String("identity", identity),
									zap.String("path", path),
									zap.String("rule", rule.PathPrefix),
									zap.Int("limit", dec.Limit))
							}
							record(r, key, false, domain.ReasonRateLimit)
							writeDenial(w, http.StatusTooManyRequests, "rate limit exceeded", dec.RetryAfter)
							return
						}
						if rule.SkipOnSuccess || rule.SkipOnFailure {
							// estorno roda após a resposta; não herda o cancel
							// do cliente porque o hit já foi confirmado
							settleCtx := context.WithoutCancel(r.Context())
							settle = func(status int) {
								_ = limiter.Settle(settleCtx, identity, rule, status)
							}
						}
					}
				}
			}

			record(r, domain.Key(identity), true, "")

			var rc domain.RouteClassification
			if opts.Classifier != nil {
				rc = opts.Classifier.Classify(path)
				if rc.Admin {
					// admin é registrado para auditoria; a autorização fina
					// acontece no handler, fora desta camada
					opts.Logger.Debug("admin route classified",
						zap.String("identity", identity),
						zap.String("path", path))
				}
			}

			if opts.Auth != nil && path != "" && (path == opts.SignInPath || path == opts.SignUpPath) {
				if opts.Auth.HasSession(r) {
					http.Redirect(w, r, opts.LandingPath, http.StatusFound)
					return
				}
			}

			downstream := next
			if settle != nil {
				downstream = withSettle(next, settle)
			}

			if rc.RequiresAuth() && opts.Auth != nil {
				opts.Auth.Enforce(downstream).ServeHTTP(w, r)
				return
			}

			downstream.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captura o status final para os flags skip-on-*.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func withSettle(next http.Handler, settle func(status int)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		settle(rec.status)
	})
}
