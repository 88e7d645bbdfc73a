package api

import (
	"encoding/json"
	"fmt"
)

// Codec serializes the plain request and response structs of this package.
// It registers under the "json" name, so Connect clients sending
// application/json reach it instead of the protobuf JSON codec.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
