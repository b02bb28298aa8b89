package reform

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Attributes is implemented by domain objects that control their own
// attribute access. It takes precedence over map and struct access.
type Attributes interface {
	Attribute(name string) (any, bool)
	SetAttribute(name string, value any) error
}

var (
	errNotCarrier  = errors.New("reform: value has no attributes")
	errReadOnly    = errors.New("reform: value is not addressable; pass a pointer")
	errNoSuchField = errors.New("reform: no such field")
	errLossyNumber = errors.New("reform: number cannot be stored exactly")
)

// ResolveStructKey returns the attribute name a struct field answers to.
// Priority: reform:"name" > json tag name > field name; "-" hides the field.
func ResolveStructKey(sf reflect.StructField) string {
	if rt := sf.Tag.Get("reform"); rt != "" {
		if i := strings.IndexByte(rt, ','); i >= 0 {
			rt = rt[:i]
		}
		if rt != "" {
			return rt
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			jt = jt[:i]
		}
		if jt != "" {
			return jt
		}
	}
	return sf.Name
}

// structField finds the field answering to name: an exact key match first,
// then a case-insensitive match ignoring underscores ("first_name" -> FirstName).
func structField(rt reflect.Type, name string) (reflect.StructField, bool) {
	fields := reflect.VisibleFields(rt)
	for _, sf := range fields {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if ResolveStructKey(sf) == name {
			return sf, true
		}
	}
	folded := strings.ReplaceAll(name, "_", "")
	for _, sf := range fields {
		if !sf.IsExported() || sf.Anonymous || ResolveStructKey(sf) == "-" {
			continue
		}
		if strings.EqualFold(sf.Name, folded) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

// AttributeOf reads name from obj the way forms do. Addressable struct and
// array fields come back as pointers, so child objects obtained here stay
// writable.
func AttributeOf(obj any, name string) (any, bool) {
	v, found, err := readChild(obj, name)
	if err != nil {
		return nil, false
	}
	return v, found
}

// readAttribute reads name from obj. found is false when obj is a carrier but
// has no such attribute; err is set when obj cannot carry attributes at all.
func readAttribute(obj any, name string) (value any, found bool, err error) {
	return readAttr(obj, name, false)
}

// readChild is readAttribute for nested sources: addressable struct and array
// fields come back as pointers into obj.
func readChild(obj any, name string) (value any, found bool, err error) {
	return readAttr(obj, name, true)
}

func readAttr(obj any, name string, expose bool) (value any, found bool, err error) {
	switch o := obj.(type) {
	case nil:
		return nil, false, errNotCarrier
	case Attributes:
		v, ok := o.Attribute(name)
		return v, ok, nil
	case Hash:
		v, ok := o[name]
		return v, ok, nil
	case map[string]any:
		v, ok := o[name]
		return v, ok, nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false, errNotCarrier
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		sf, ok := structField(rv.Type(), name)
		if !ok {
			return nil, false, nil
		}
		fv, ferr := rv.FieldByIndexErr(sf.Index)
		if ferr != nil {
			return nil, false, nil
		}
		if expose {
			return exposeValue(fv), true, nil
		}
		return fv.Interface(), true, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false, errNotCarrier
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false, nil
		}
		return mv.Interface(), true, nil
	}
	return nil, false, errNotCarrier
}

// exposeValue hands out addressable struct and array values as pointers so
// that child forms built on them write back into the parent graph.
func exposeValue(fv reflect.Value) any {
	switch fv.Kind() {
	case reflect.Struct, reflect.Array:
		if fv.CanAddr() {
			return fv.Addr().Interface()
		}
	}
	return fv.Interface()
}

// writeAttribute stores value under name on obj.
func writeAttribute(obj any, name string, value any) error {
	switch o := obj.(type) {
	case nil:
		return errNotCarrier
	case Attributes:
		return o.SetAttribute(name, value)
	case Hash:
		o[name] = value
		return nil
	case map[string]any:
		o[name] = value
		return nil
	}
	rv := reflect.ValueOf(obj)
	addressable := false
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return errNotCarrier
		}
		if rv.Kind() == reflect.Pointer {
			addressable = true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if !addressable {
			return errReadOnly
		}
		sf, ok := structField(rv.Type(), name)
		if !ok {
			return fmt.Errorf("%w: %s.%s", errNoSuchField, rv.Type(), name)
		}
		fv, err := rv.FieldByIndexErr(sf.Index)
		if err != nil {
			return err
		}
		if !fv.CanSet() {
			return errReadOnly
		}
		return assign(fv, value)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return errNotCarrier
		}
		if rv.IsNil() {
			return errReadOnly
		}
		ev := reflect.New(rv.Type().Elem()).Elem()
		if err := assign(ev, value); err != nil {
			return err
		}
		rv.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), ev)
		return nil
	}
	return errNotCarrier
}

// assign sets dst to value, converting only between kinds where conversion
// preserves meaning (numeric to numeric, string-like to string-like).
func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if isNumericKind(src.Kind()) && isNumericKind(dst.Kind()) {
		return assignNumber(dst, src)
	}
	if src.Kind() == dst.Kind() && src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Pointer && src.Type().AssignableTo(dst.Type().Elem()) {
		p := reflect.New(dst.Type().Elem())
		p.Elem().Set(src)
		dst.Set(p)
		return nil
	}
	return fmt.Errorf("reform: cannot assign %T to %s", value, dst.Type())
}

// assignNumber stores src in the numeric dst only when the value survives
// the conversion unchanged: no truncated fractions, no overflow, no sign loss.
func assignNumber(dst, src reflect.Value) error {
	lossy := fmt.Errorf("%w: %v does not fit %s", errLossyNumber, src.Interface(), dst.Type())
	switch {
	case isIntKind(src.Kind()):
		n := src.Int()
		switch {
		case isIntKind(dst.Kind()):
			if dst.OverflowInt(n) {
				return lossy
			}
			dst.SetInt(n)
		case isUintKind(dst.Kind()):
			if n < 0 || dst.OverflowUint(uint64(n)) {
				return lossy
			}
			dst.SetUint(uint64(n))
		default:
			f := float64(n)
			if !exactInt(f, n) || dst.OverflowFloat(f) || (dst.Kind() == reflect.Float32 && float64(float32(f)) != f) {
				return lossy
			}
			dst.SetFloat(f)
		}
	case isUintKind(src.Kind()):
		u := src.Uint()
		switch {
		case isIntKind(dst.Kind()):
			if u > math.MaxInt64 || dst.OverflowInt(int64(u)) {
				return lossy
			}
			dst.SetInt(int64(u))
		case isUintKind(dst.Kind()):
			if dst.OverflowUint(u) {
				return lossy
			}
			dst.SetUint(u)
		default:
			f := float64(u)
			if f >= 1<<64 || uint64(f) != u || (dst.Kind() == reflect.Float32 && float64(float32(f)) != f) {
				return lossy
			}
			dst.SetFloat(f)
		}
	default:
		f := src.Float()
		switch {
		case isIntKind(dst.Kind()):
			if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 || dst.OverflowInt(int64(f)) {
				return lossy
			}
			dst.SetInt(int64(f))
		case isUintKind(dst.Kind()):
			if f != math.Trunc(f) || f < 0 || f >= 1<<64 || dst.OverflowUint(uint64(f)) {
				return lossy
			}
			dst.SetUint(uint64(f))
		default:
			if !math.IsInf(f, 0) && dst.OverflowFloat(f) {
				return lossy
			}
			dst.SetFloat(f)
		}
	}
	return nil
}

// exactInt reports whether f holds n without rounding.
func exactInt(f float64, n int64) bool {
	if f >= 1<<63 {
		return false
	}
	return int64(f) == n
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
