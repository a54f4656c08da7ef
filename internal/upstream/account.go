package upstream

import (
	"encoding/json"
	"strings"
)

// Account is one account record returned by Unipile. The identity fields are
// decoded into the struct; the whole object is kept in Fields because the
// display identity lives in provider-specific places.
type Account struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Type      string         `json:"type"`
	Provider  string         `json:"provider"`
	Status    string         `json:"status"`
	Fields    map[string]any `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw document.
// Identity fields that are not strings are ignored rather than rejected.
func (a *Account) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*a = Account{
		ID:        stringField(fields, "id"),
		AccountID: stringField(fields, "account_id"),
		Type:      stringField(fields, "type"),
		Provider:  stringField(fields, "provider"),
		Status:    stringField(fields, "status"),
		Fields:    fields,
	}
	return nil
}

// Identifier returns the account id, preferring "id" over "account_id".
func (a Account) Identifier() string {
	if a.ID != "" {
		return a.ID
	}
	return a.AccountID
}

// ProviderType returns the provider id, preferring "type" over "provider".
func (a Account) ProviderType() string {
	if a.Type != "" {
		return a.Type
	}
	return a.Provider
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}
