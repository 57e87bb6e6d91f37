package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

// Exemplo: injetando o middleware diretamente no seu webserver (sem proxy),
// com rotas públicas, protegidas e de API para exercitar o pipeline.
func main() {
	store := infra.NewMemoryStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	resolver, err := application.NewResolver("/api/", []domain.Rule{
		{PathPrefix: "/api/", Window: time.Minute, MaxRequests: 60},
		{PathPrefix: "/api/checkout", Window: 15 * time.Minute, MaxRequests: 10},
	})
	if err != nil {
		log.Fatalf("rule table error: %v", err)
	}

	classifier := application.NewClassifier(application.ClassifierConfig{
		PublicRoutes:     []string{"/", "/products", "/sign-in", "/sign-up"},
		ProtectedRoutes:  []string{"/dashboard"},
		AdminRoutes:      []string{"/admin"},
		StaticPrefixes:   []string{"/static/"},
		StaticExtensions: []string{".css", ".js", ".png", ".ico"},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("home\n"))
	})
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("catalog\n"))
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("dashboard\n"))
	})
	mux.HandleFunc("/api/checkout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/sign-in", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "demo", Path: "/"})
		_, _ = w.Write([]byte("signed in\n"))
	})

	h := http.Handler(mux)
	h = admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{Max: 50})(h)
	h = admission.Middleware(admission.Options{
		Resolver:   resolver,
		Store:      store,
		Inspector:  application.NewInspector(nil),
		Classifier: classifier,
		Auth: admission.CookieSessionProvider{
			CookieName: "session",
			SignInURL:  "/sign-in",
		},
		SignInPath:  "/sign-in",
		SignUpPath:  "/sign-up",
		LandingPath: "/dashboard",
	})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
