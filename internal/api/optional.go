package api

import (
	"bytes"
	"reflect"

	"github.com/bytedance/sonic"
	"github.com/danielgtaylor/huma/v2"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// OmittableNullable is a request field that can be absent, explicitly null, or set.
// Fields using it must be tagged omitempty.
type OmittableNullable[T any] struct {
	Sent  bool
	Null  bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler. It is only called for fields present in the body.
func (o *OmittableNullable[T]) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	o.Sent = true
	if bytes.Equal(b, []byte("null")) {
		o.Null = true
		return nil
	}
	return sonic.Unmarshal(b, &o.Value)
}

// Schema implements huma.SchemaProvider.
func (o OmittableNullable[T]) Schema(r huma.Registry) *huma.Schema {
	s := *r.Schema(reflect.TypeOf(o.Value), false, "")
	s.Nullable = true
	return &s
}

// Optional converts the field to its domain form.
func (o OmittableNullable[T]) Optional() domain.Optional[T] {
	return domain.Optional[T]{Value: o.Value, Set: o.Sent, Null: o.Null}
}
