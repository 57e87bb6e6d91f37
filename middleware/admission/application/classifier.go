package application

import (
	"path"
	"strings"

	"admission-gateway/middleware/admission/domain"
)

// Classifier classifica caminhos em público/protegido/admin e reconhece
// assets estáticos, a partir de listas de matchers imutáveis após o boot.
//
// Um matcher casa o próprio caminho e qualquer subcaminho: "/dashboard" casa
// "/dashboard" e "/dashboard/settings". "/" casa apenas a raiz.
type Classifier struct {
	public    []string
	protected []string
	admin     []string

	staticPrefixes []string
	staticExts     map[string]struct{}
}

// ClassifierConfig agrega as listas fornecidas na inicialização.
type ClassifierConfig struct {
	PublicRoutes    []string
	ProtectedRoutes []string
	AdminRoutes     []string

	StaticPrefixes   []string
	StaticExtensions []string
}

// NewClassifier constrói o classificador a partir das listas configuradas.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	exts := make(map[string]struct{}, len(cfg.StaticExtensions))
	for _, e := range cfg.StaticExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &Classifier{
		public:         append([]string(nil), cfg.PublicRoutes...),
		protected:      append([]string(nil), cfg.ProtectedRoutes...),
		admin:          append([]string(nil), cfg.AdminRoutes...),
		staticPrefixes: append([]string(nil), cfg.StaticPrefixes...),
		staticExts:     exts,
	}
}

// Classify computa os conjuntos aos quais o caminho pertence.
// Público prevalece sobre protegido; a decisão fica em RequiresAuth.
func (c *Classifier) Classify(p string) domain.RouteClassification {
	return domain.RouteClassification{
		Public:    matchAny(c.public, p),
		Protected: matchAny(c.protected, p),
		Admin:     matchAny(c.admin, p),
	}
}

// Static informa se o caminho é asset estático (bypass total do pipeline,
// exceto decoração de headers de segurança).
func (c *Classifier) Static(p string) bool {
	for _, prefix := range c.staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if ext := strings.ToLower(path.Ext(p)); ext != "" {
		if _, ok := c.staticExts[ext]; ok {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if matchRoute(pattern, p) {
			return true
		}
	}
	return false
}

func matchRoute(pattern, p string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "/" {
		return p == "/"
	}
	pattern = strings.TrimSuffix(pattern, "/")
	return p == pattern || strings.HasPrefix(p, pattern+"/")
}
