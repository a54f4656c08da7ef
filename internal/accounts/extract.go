package accounts

import "strings"

// FieldPath addresses a nested field of an upstream account document.
type FieldPath []string

func (p FieldPath) String() string { return strings.Join(p, ".") }

// EmailCandidates is probed in order by ExtractEmail. Some providers only
// put the address in the generic "name" field, hence the last entry.
var EmailCandidates = []FieldPath{
	{"email"},
	{"profile", "email"},
	{"connection_params", "mail", "id"},
	{"connection_params", "mail", "username"},
	{"address"},
	{"name"},
}

// UsernameCandidates is probed in order by ExtractUsername.
var UsernameCandidates = []FieldPath{
	{"username"},
	{"connection_params", "mail", "username"},
	{"profile", "username"},
	{"profile", "name"},
}

// ExtractEmail returns a best-effort display email, or "" when none of
// EmailCandidates holds a value. The value is not validated.
func ExtractEmail(fields map[string]any) string {
	return firstString(fields, EmailCandidates)
}

// ExtractUsername returns a best-effort display username, or "".
func ExtractUsername(fields map[string]any) string {
	return firstString(fields, UsernameCandidates)
}

func firstString(fields map[string]any, candidates []FieldPath) string {
	for _, path := range candidates {
		if v := lookup(fields, path); v != "" {
			return v
		}
	}
	return ""
}

// lookup walks path through nested objects. Missing, non-object and
// non-string nodes all resolve to "".
func lookup(fields map[string]any, path FieldPath) string {
	var node any = fields
	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return ""
		}
		node = obj[key]
	}
	s, ok := node.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
