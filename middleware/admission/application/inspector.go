package application

import (
	"regexp"
	"strings"

	"admission-gateway/middleware/admission/domain"
)

// signature é uma assinatura de abuso nomeada, testada contra user-agent,
// URL completa e referer.
type signature struct {
	name string
	re   *regexp.Regexp
}

// Conjunto fixo de assinaturas, compilado uma única vez no carregamento do
// pacote. Sinal não-autoritativo: em caminhos de página um casamento apenas
// gera log, para não trancar crawlers legítimos navegando páginas públicas.
var signatures = []signature{
	{name: "bot-scanner", re: regexp.MustCompile(`(?i)(sqlmap|nikto|nessus|masscan|nmap|dirbuster|gobuster|wpscan|zgrab|acunetix|netsparker)`)},
	{name: "exploit-probe", re: regexp.MustCompile(`(?i)(\.env\b|wp-admin|wp-login|phpmyadmin|/etc/passwd|\.git/|cgi-bin|eval\()`)},
	{name: "path-traversal", re: regexp.MustCompile(`(?i)(\.\./|\.\.\\|%2e%2e%2f|%2e%2e/)`)},
	{name: "script-injection", re: regexp.MustCompile(`(?i)(<script|javascript:|onerror\s*=|onload\s*=|%3cscript)`)},
	{name: "sql-injection", re: regexp.MustCompile(`(?i)(union[\s+]+select|or[\s+]+1\s*=\s*1|insert[\s+]+into|drop[\s+]+table|information_schema|['"]\s*(--|#))`)},
}

// Inspector reúne a blocklist estática e a heurística de suspeita.
//
// A blocklist nega incondicionalmente e é checada antes de qualquer contagem;
// a heurística produz um Verdict cuja política (negar ou apenas logar) é
// decidida pelo adapter HTTP conforme o caminho.
type Inspector struct {
	blocklist map[string]struct{}
}

// NewInspector constrói o inspector com o conjunto de identidades bloqueadas.
func NewInspector(blocklist []string) *Inspector {
	set := make(map[string]struct{}, len(blocklist))
	for _, id := range blocklist {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return &Inspector{blocklist: set}
}

// Blocklisted informa se a identidade está na blocklist.
func (i *Inspector) Blocklisted(identity string) bool {
	_, ok := i.blocklist[identity]
	return ok
}

// Inspect testa as assinaturas contra user-agent, URL completa e referer,
// na ordem do conjunto; o primeiro casamento decide o veredito.
func (i *Inspector) Inspect(userAgent, fullURL, referer string) domain.Verdict {
	for _, sig := range signatures {
		if sig.re.MatchString(userAgent) || sig.re.MatchString(fullURL) || sig.re.MatchString(referer) {
			return domain.Verdict{Suspicious: true, Pattern: sig.name}
		}
	}
	return domain.Verdict{}
}
