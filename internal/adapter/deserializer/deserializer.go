// Package deserializer contains the default [domain.Deserializer]
// implementation.
package deserializer

import (
	"context"
	"encoding/json"
)

// Deserializer implements domain.Deserializer by unmarshaling JSON.
type Deserializer struct{}

// NewDeserializer returns a new implementation of domain.Deserializer.
func NewDeserializer() *Deserializer {
	return &Deserializer{}
}

// Deserialize implements domain.Deserializer.
func (d *Deserializer) Deserialize(ctx context.Context, b []byte, tgt any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return json.Unmarshal(b, tgt)
}
