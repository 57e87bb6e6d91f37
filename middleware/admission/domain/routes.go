package domain

// RouteClassification indica a quais conjuntos declarados um caminho pertence.
//
// Os conjuntos não são exclusivos: um caminho pode ser público e protegido ao
// mesmo tempo; nesse caso público prevalece e nenhuma autenticação é exigida.
// Admin é registrado para auditoria, mas a autorização fina acontece no
// handler, fora desta camada.
type RouteClassification struct {
	Public    bool
	Protected bool
	Admin     bool
}

// RequiresAuth informa se a rota exige sessão válida nesta camada.
func (rc RouteClassification) RequiresAuth() bool {
	return rc.Protected && !rc.Public
}
