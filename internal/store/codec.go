package store

import "github.com/bytedance/sonic"

// codec encodes stored documents. ConfigStd keeps encoding/json semantics
// (sorted map keys, HTML escaping) so documents are byte-stable across stores.
var codec = sonic.ConfigStd

// Marshal encodes a stored document.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Unmarshal decodes a stored document.
func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}
