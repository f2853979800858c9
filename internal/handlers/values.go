package handlers

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Attr returns one attribute of a step's values. It tolerates a missing
// or null values object.
func Attr(values cty.Value, name string) (cty.Value, bool) {
	if values == cty.NilVal || values.IsNull() || !values.IsKnown() {
		return cty.NilVal, false
	}
	ty := values.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(name) {
			return cty.NilVal, false
		}
		return values.GetAttr(name), true
	case ty.IsMapType():
		key := cty.StringVal(name)
		if values.HasIndex(key).False() {
			return cty.NilVal, false
		}
		return values.Index(key), true
	}
	return cty.NilVal, false
}

// DecodeAttr decodes one attribute into target, a pointer, using gocty.
// The value is first converted to the type implied by target, so HCL
// tuple literals decode into slices. It reports false when the attribute
// is absent.
func DecodeAttr(values cty.Value, name string, target any) (bool, error) {
	v, ok := Attr(values, name)
	if !ok || v.IsNull() {
		return false, nil
	}
	ty, err := gocty.ImpliedType(reflect.ValueOf(target).Elem().Interface())
	if err != nil {
		return true, fmt.Errorf("values.%s: %w", name, err)
	}
	if v, err = convert.Convert(v, ty); err != nil {
		return true, fmt.Errorf("values.%s: %w", name, err)
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return true, fmt.Errorf("values.%s: %w", name, err)
	}
	return true, nil
}
