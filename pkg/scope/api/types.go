package api

// ScopeRequest is the body of POST /scopes and PUT /scopes/{inum}
type ScopeRequest struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Type        string   `json:"scope_type"`
	Default     *bool    `json:"default_scope,omitempty"`
	Claims      []string `json:"claims,omitempty"`
}

// ScopeResponse is a scope as returned by the API
type ScopeResponse struct {
	Inum        string   `json:"inum"`
	DN          string   `json:"dn"`
	ID          string   `json:"id,omitempty"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"scope_type,omitempty"`
	Default     *bool    `json:"default_scope,omitempty"`
	Claims      []string `json:"claims,omitempty"`
}

type ScopeListResponse struct {
	Scopes  []ScopeResponse `json:"scopes"`
	Pattern string          `json:"pattern,omitempty"`
	Limit   int             `json:"limit"`
}

type ScopeTypesResponse struct {
	Types []string `json:"types"`
}
