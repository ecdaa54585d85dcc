package registration

import (
	"cmp"
	"slices"
)

// ScriptType is the registration phase an interceptor script runs in.
type ScriptType string

const (
	ScriptTypeInit ScriptType = "init"
	ScriptTypePre  ScriptType = "pre"
	ScriptTypePost ScriptType = "post"
)

// InterceptorScript is a registration interceptor configured on the
// organization. Script holds a CEL boolean expression unless Name refers
// to an interceptor in the Registry.
type InterceptorScript struct {
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Type             ScriptType        `json:"type"`
	Enabled          bool              `json:"enabled"`
	Priority         int               `json:"priority"`
	CustomAttributes map[string]string `json:"customAttributes,omitempty"`
	Script           string            `json:"script,omitempty"`
}

// Configuration is the registration configuration of an organization.
type Configuration struct {
	InterceptorsConfigured bool                `json:"registrationInterceptorsConfigured"`
	Scripts                []InterceptorScript `json:"registrationInterceptorScripts,omitempty"`
}

// ActiveScripts returns the enabled scripts of type t, ordered by priority.
// Scripts with equal priority keep their configured order.
func (c *Configuration) ActiveScripts(t ScriptType) []InterceptorScript {
	if c == nil {
		return nil
	}
	var active []InterceptorScript
	for _, s := range c.Scripts {
		if s.Type == t && s.Enabled {
			active = append(active, s)
		}
	}
	slices.SortStableFunc(active, func(a, b InterceptorScript) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return active
}

// Person is the account being registered.
type Person struct {
	Inum        string              `json:"inum,omitempty"`
	UID         string              `json:"uid,omitempty"`
	DisplayName string              `json:"displayName,omitempty"`
	Mail        string              `json:"mail,omitempty"`
	Attributes  map[string][]string `json:"attributes,omitempty"`
}

// toMap exposes the person to script expressions.
func (p *Person) toMap() map[string]any {
	if p == nil {
		return map[string]any{}
	}
	attrs := make(map[string]any, len(p.Attributes))
	for k, v := range p.Attributes {
		attrs[k] = v
	}
	return map[string]any{
		"inum":        p.Inum,
		"uid":         p.UID,
		"displayName": p.DisplayName,
		"mail":        p.Mail,
		"attributes":  attrs,
	}
}
