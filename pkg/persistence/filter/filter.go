// Package filter builds search filters over entry documents.
//
// Filters follow directory-server semantics: attribute values are compared
// case-insensitively, multi-valued attributes match when any value matches,
// and substring filters carry optional initial, any and final components.
package filter

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Filter selects entry documents.
type Filter interface {
	// Matches reports whether the JSON document satisfies the filter.
	Matches(doc []byte) bool
	// String renders the filter in LDAP string form, for logs.
	String() string
}

// Matches evaluates f against doc. A nil filter matches every document.
func Matches(f Filter, doc []byte) bool {
	if f == nil {
		return true
	}
	return f.Matches(doc)
}

// String renders f, returning "(objectClass=*)" for a nil filter.
func String(f Filter) string {
	if f == nil {
		return "(objectClass=*)"
	}
	return f.String()
}

type substringFilter struct {
	attr    string
	initial string
	any     []string
	final   string
}

// Substring matches attr values that start with initial, contain every
// element of any in order, and end with final. Empty components are ignored.
func Substring(attr, initial string, any []string, final string) Filter {
	return &substringFilter{attr: attr, initial: initial, any: any, final: final}
}

// Contains matches attr values containing value anywhere.
func Contains(attr, value string) Filter {
	return Substring(attr, "", []string{value}, "")
}

func (f *substringFilter) Matches(doc []byte) bool {
	return anyValue(doc, f.attr, f.matchValue)
}

func (f *substringFilter) matchValue(v string) bool {
	v = strings.ToLower(v)
	if f.initial != "" {
		initial := strings.ToLower(f.initial)
		if !strings.HasPrefix(v, initial) {
			return false
		}
		v = v[len(initial):]
	}
	for _, part := range f.any {
		if part == "" {
			continue
		}
		part = strings.ToLower(part)
		idx := strings.Index(v, part)
		if idx < 0 {
			return false
		}
		v = v[idx+len(part):]
	}
	if f.final != "" {
		return strings.HasSuffix(v, strings.ToLower(f.final))
	}
	return true
}

func (f *substringFilter) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(f.attr)
	b.WriteString("=")
	b.WriteString(escape(f.initial))
	b.WriteString("*")
	for _, part := range f.any {
		if part == "" {
			continue
		}
		b.WriteString(escape(part))
		b.WriteString("*")
	}
	b.WriteString(escape(f.final))
	b.WriteString(")")
	return b.String()
}

type equalityFilter struct {
	attr  string
	value string
}

// Equality matches attr values equal to value, ignoring case.
func Equality(attr, value string) Filter {
	return &equalityFilter{attr: attr, value: value}
}

func (f *equalityFilter) Matches(doc []byte) bool {
	return anyValue(doc, f.attr, func(v string) bool {
		return strings.EqualFold(v, f.value)
	})
}

func (f *equalityFilter) String() string {
	return "(" + f.attr + "=" + escape(f.value) + ")"
}

type presenceFilter struct {
	attr string
}

// Presence matches documents that carry a non-null, non-empty attr.
func Presence(attr string) Filter {
	return &presenceFilter{attr: attr}
}

func (f *presenceFilter) Matches(doc []byte) bool {
	return anyValue(doc, f.attr, func(string) bool { return true })
}

func (f *presenceFilter) String() string {
	return "(" + f.attr + "=*)"
}

type orFilter struct {
	filters []Filter
}

// Or matches when at least one child matches. Nil children are skipped; an
// Or without children matches nothing.
func Or(filters ...Filter) Filter {
	return &orFilter{filters: compact(filters)}
}

func (f *orFilter) Matches(doc []byte) bool {
	for _, child := range f.filters {
		if child.Matches(doc) {
			return true
		}
	}
	return false
}

func (f *orFilter) String() string {
	return join("|", f.filters)
}

type andFilter struct {
	filters []Filter
}

// And matches when every child matches. Nil children are skipped; an And
// without children matches everything.
func And(filters ...Filter) Filter {
	return &andFilter{filters: compact(filters)}
}

func (f *andFilter) Matches(doc []byte) bool {
	for _, child := range f.filters {
		if !child.Matches(doc) {
			return false
		}
	}
	return true
}

func (f *andFilter) String() string {
	return join("&", f.filters)
}

// anyValue applies match to each value of attr in doc.
func anyValue(doc []byte, attr string, match func(string) bool) bool {
	result := gjson.GetBytes(doc, gjsonPath(attr))
	if !result.Exists() || result.Type == gjson.Null {
		return false
	}
	if result.IsArray() {
		for _, item := range result.Array() {
			if item.Type == gjson.Null {
				continue
			}
			if match(item.String()) {
				return true
			}
		}
		return false
	}
	return match(result.String())
}

// gjsonPath escapes characters gjson treats as path syntax.
func gjsonPath(attr string) string {
	var b strings.Builder
	for _, r := range attr {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func compact(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

func join(op string, filters []Filter) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(op)
	for _, f := range filters {
		b.WriteString(f.String())
	}
	b.WriteString(")")
	return b.String()
}

// escape applies RFC 4515 value escaping.
func escape(v string) string {
	r := strings.NewReplacer(`\`, `\5c`, `*`, `\2a`, `(`, `\28`, `)`, `\29`, "\x00", `\00`)
	return r.Replace(v)
}
