// Package providers maps between the dashboard's provider keys and the
// provider identifiers used by the Unipile API.
package providers

import (
	"errors"
	"strings"
)

// Key is the provider name used by the dashboard and the REST API.
type Key string

const (
	Gmail     Key = "gmail"
	Outlook   Key = "outlook"
	Instagram Key = "instagram"
	LinkedIn  Key = "linkedin"
)

// UpstreamID is the provider name used by Unipile.
type UpstreamID string

const (
	UpstreamGoogle    UpstreamID = "GOOGLE"
	UpstreamMicrosoft UpstreamID = "MICROSOFT"
	UpstreamInstagram UpstreamID = "INSTAGRAM"
	UpstreamLinkedIn  UpstreamID = "LINKEDIN"
)

const (
	CategoryEmail  = "email"
	CategorySocial = "social"
)

// ErrInvalidProvider is returned for keys outside the supported set.
// The message is shown verbatim to API clients.
var ErrInvalidProvider = errors.New("Provider invalide")

type provider struct {
	key      Key
	upstream UpstreamID
	label    string
	category string
}

// Display order for the dashboard.
var table = []provider{
	{Gmail, UpstreamGoogle, "Gmail", CategoryEmail},
	{Outlook, UpstreamMicrosoft, "Outlook", CategoryEmail},
	{Instagram, UpstreamInstagram, "Instagram", CategorySocial},
	{LinkedIn, UpstreamLinkedIn, "LinkedIn", CategorySocial},
}

func lookupKey(key Key) (provider, bool) {
	for _, p := range table {
		if p.key == key {
			return p, true
		}
	}
	return provider{}, false
}

// Keys returns the supported keys in display order.
func Keys() []Key {
	keys := make([]Key, 0, len(table))
	for _, p := range table {
		keys = append(keys, p.key)
	}
	return keys
}

// IsValidKey reports whether key is one of the supported dashboard keys.
func IsValidKey(key string) bool {
	_, ok := lookupKey(Key(key))
	return ok
}

// ToUpstream resolves a dashboard key to the Unipile provider id.
func ToUpstream(key string) (UpstreamID, error) {
	p, ok := lookupKey(Key(key))
	if !ok {
		return "", ErrInvalidProvider
	}
	return p.upstream, nil
}

// Normalize collapses suffixed variants such as GOOGLE_OAUTH or
// MICROSOFT_OAUTH to their base id. Anything else must match one of the
// known ids, ignoring case.
func Normalize(id string) (UpstreamID, bool) {
	upper := strings.ToUpper(strings.TrimSpace(id))
	switch {
	case upper == "":
		return "", false
	case strings.Contains(upper, string(UpstreamGoogle)):
		return UpstreamGoogle, true
	case strings.Contains(upper, string(UpstreamMicrosoft)):
		return UpstreamMicrosoft, true
	}
	for _, p := range table {
		if string(p.upstream) == upper {
			return p.upstream, true
		}
	}
	return "", false
}

// ToCanonical resolves a Unipile provider id (possibly suffixed) to the
// dashboard key. Unknown ids report false.
func ToCanonical(id string) (Key, bool) {
	upstream, ok := Normalize(id)
	if !ok {
		return "", false
	}
	for _, p := range table {
		if p.upstream == upstream {
			return p.key, true
		}
	}
	return "", false
}

// Label is the human readable provider name.
func (k Key) Label() string {
	if p, ok := lookupKey(k); ok {
		return p.label
	}
	return string(k)
}

// Category groups providers on the dashboard ("email" or "social").
func (k Key) Category() string {
	if p, ok := lookupKey(k); ok {
		return p.category
	}
	return ""
}
