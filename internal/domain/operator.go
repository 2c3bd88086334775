package domain

// SubjectType differentiates token holders.
type SubjectType string

const (
	SubjectTypeOperator SubjectType = "OPERATOR"
)

// OperatorRole scopes what an operator token may see.
type OperatorRole string

const (
	OperatorRoleViewer OperatorRole = "VIEWER"
	OperatorRoleAdmin  OperatorRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r OperatorRole) Valid() bool {
	return r == OperatorRoleViewer || r == OperatorRoleAdmin
}
