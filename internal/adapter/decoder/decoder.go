// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/vinicius-lino-figueiredo/recdb/domain"
)

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder. Input is decoded weakly typed so values
// that round-tripped through JSON (float64 numbers, RFC 3339 time strings)
// land back in the declared field types.
func (d *Decoder) Decode(src any, tgt any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "recdb",
		Result:           tgt,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}
