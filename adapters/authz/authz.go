// Package authz provides AccessControl policies for the auction ledger and
// the bearer-token verification the HTTP layer uses to resolve callers.
package authz

// StaticOperator authorizes exactly one caller address.
type StaticOperator struct {
	operator string
}

// NewStaticOperator designates the single privileged operator.
func NewStaticOperator(operator string) *StaticOperator {
	return &StaticOperator{operator: operator}
}

func (s *StaticOperator) IsAuthorized(caller string) bool {
	return caller != "" && caller == s.operator
}

// AllowList authorizes any caller on a fixed list. It is the role-list
// substitution for deployments with more than one operator.
type AllowList struct {
	allowed map[string]struct{}
}

// NewAllowList builds an AllowList from the given addresses.
func NewAllowList(addresses ...string) *AllowList {
	allowed := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		allowed[address] = struct{}{}
	}
	return &AllowList{allowed: allowed}
}

func (a *AllowList) IsAuthorized(caller string) bool {
	_, ok := a.allowed[caller]
	return ok
}
