package domain

// Verdict é o resultado da heurística de abuso para uma requisição.
// É calculado por requisição e nunca persistido.
type Verdict struct {
	Suspicious bool

	// Pattern nomeia a assinatura que casou, para log de auditoria.
	Pattern string
}
