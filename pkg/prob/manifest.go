package prob

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

var (
	ErrUnknownKind        = fmt.Errorf("unknown kind")
	ErrUnexpectedSpecType = fmt.Errorf("unexpected spec type")
)

var probKindRegistry = map[Kind]reflect.Type{}

func RegisterKind(kind Kind, proto any) error {
	val := reflect.ValueOf(proto)
	if !val.CanInterface() {
		return fmt.Errorf("type of %q can not interface", val.Type())
	}

	t := val.Type()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	probKindRegistry[kind] = t
	return nil
}

func UnregisterKind(kind Kind) {
	delete(probKindRegistry, kind)
}

// InstanceOf returns a new zero value of the spec type registered for the kind.
func InstanceOf(kind Kind) (any, error) {
	t, known := probKindRegistry[kind]
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return reflect.New(t).Interface(), nil
}

// unmarshalSpecJSON decodes a raw spec according to the registered kind.
// Unknown kinds decode into a generic map so that manifests survive a
// round-trip even when the prober module is not linked in.
func unmarshalSpecJSON(kind Kind, data json.RawMessage) (any, error) {
	spec, err := InstanceOf(kind)
	if err != nil {
		generic := make(map[string]any)
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, err
		}

		return generic, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(spec); err != nil {
		return nil, err
	}

	return spec, nil
}
