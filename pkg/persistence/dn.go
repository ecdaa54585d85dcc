package persistence

import (
	"strings"
)

// SplitDN splits dn into its relative distinguished names, honouring
// backslash-escaped commas.
func SplitDN(dn string) []string {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range dn {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			current.WriteRune(r)
			escaped = true
		case r == ',':
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if last := strings.TrimSpace(current.String()); last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	return parts
}

// NormalizeDN returns the comparison key for dn: RDNs trimmed, lower-cased
// and joined with commas. It returns "" for malformed input.
func NormalizeDN(dn string) string {
	parts := SplitDN(dn)
	if len(parts) == 0 {
		return ""
	}
	for i, rdn := range parts {
		attr, value, ok := strings.Cut(rdn, "=")
		attr = strings.TrimSpace(attr)
		value = strings.TrimSpace(value)
		if !ok || attr == "" || value == "" {
			return ""
		}
		parts[i] = strings.ToLower(attr) + "=" + strings.ToLower(value)
	}
	return strings.Join(parts, ",")
}

// ParentDN returns dn without its leading RDN, or "" for a single-RDN dn.
func ParentDN(dn string) string {
	parts := SplitDN(dn)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], ",")
}

// IsDescendant reports whether dn lies strictly below baseDN.
func IsDescendant(dn, baseDN string) bool {
	key, base := NormalizeDN(dn), NormalizeDN(baseDN)
	if key == "" || base == "" {
		return false
	}
	return strings.HasSuffix(key, ","+base)
}

// BuildDN prefixes parent with the RDN attr=value.
func BuildDN(attr, value, parent string) string {
	if parent == "" {
		return attr + "=" + value
	}
	return attr + "=" + value + "," + parent
}
