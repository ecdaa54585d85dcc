package scope

import (
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

// ScopeType classifies a scope.
type ScopeType string

const (
	ScopeTypeOpenID  ScopeType = "openid"
	ScopeTypeDynamic ScopeType = "dynamic"
	ScopeTypeOAuth   ScopeType = "oauth"
	ScopeTypeUMA     ScopeType = "uma"
)

// AllScopeTypes lists every defined scope type in declaration order.
var AllScopeTypes = []ScopeType{ScopeTypeOpenID, ScopeTypeDynamic, ScopeTypeOAuth, ScopeTypeUMA}

// IsValid reports whether t is a defined scope type.
func (t ScopeType) IsValid() bool {
	for _, v := range AllScopeTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Scope is an OAuth scope grantable to clients. Clients reference it by DN.
type Scope struct {
	persistence.BaseEntry
	Inum         string               `json:"inum"`
	ID           string               `json:"oxId,omitempty"`
	DisplayName  string               `json:"displayName"`
	Description  string               `json:"description,omitempty"`
	Type         ScopeType            `json:"oxScopeType,omitempty"`
	DefaultScope persistence.TriState `json:"defaultScope,omitempty"`
	Claims       []string             `json:"oxAuthClaim,omitempty"`
}

func (Scope) ObjectClass() string { return "oxAuthCustomScope" }

// IsUMA reports whether the scope belongs to the UMA subsystem.
func (s *Scope) IsUMA() bool {
	return s.Type == ScopeTypeUMA
}
