// Package serializer contains the default [domain.Serializer] implementation.
package serializer

import (
	"context"
	"encoding/json"
)

// Serializer implements domain.Serializer by marshaling to JSON.
type Serializer struct{}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Serialize implements domain.Serializer.
func (s *Serializer) Serialize(ctx context.Context, obj any) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return json.Marshal(obj)
}
