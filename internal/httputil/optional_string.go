package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a PATCH field that tells an absent key apart from an
// explicit null. Present is false when the key was missing; Value is nil
// when the key was null.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs for keys that appear in the body.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Or returns the value, or def for null.
func (o OptionalString) Or(def string) string {
	if o.Value == nil {
		return def
	}
	return *o.Value
}
