package settings

import "encoding/json"

const redacted = "******"

// Secret is a sensitive string. It prints and marshals redacted; Reveal
// returns the plaintext.
//
// A Secret with an Identifier is an alias: during resolution its value is
// replaced by the value of the field named by Identifier.
type Secret struct {
	value      string
	Identifier string
}

// NewSecret wraps a plaintext (or ENC(...) literal) as a Secret
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// SecretRef returns a Secret that resolves to the field named identifier
func SecretRef(identifier string) Secret {
	return Secret{Identifier: identifier}
}

// Reveal returns the plaintext value
func (s Secret) Reveal() string { return s.value }

func (s Secret) String() string { return redacted }

func (s Secret) GoString() string { return "settings.Secret{" + redacted + "}" }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

func (s Secret) MarshalYAML() (any, error) { return redacted, nil }
