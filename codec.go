package reactor

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec deserializes raw bytes from a Watcher into a Patch. Implement this
// interface to feed patches from alternative formats like TOML or HCL.
type Codec interface {
	// Decode deserializes bytes into a Patch.
	Decode(data []byte) (Patch, error)

	// ContentType returns the MIME type for observability and debugging.
	ContentType() string
}

// JSONCodec implements Codec using encoding/json.
type JSONCodec struct{}

// Decode deserializes a JSON object into a Patch.
func (JSONCodec) Decode(data []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode json patch: %w", err)
	}
	return p, nil
}

// ContentType returns the JSON MIME type.
func (JSONCodec) ContentType() string {
	return "application/json"
}

// Ensure JSONCodec implements Codec.
var _ Codec = JSONCodec{}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct{}

// Decode deserializes a YAML mapping into a Patch.
func (YAMLCodec) Decode(data []byte) (Patch, error) {
	var p Patch
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode yaml patch: %w", err)
	}
	return p, nil
}

// ContentType returns the YAML MIME type.
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// Ensure YAMLCodec implements Codec.
var _ Codec = YAMLCodec{}
