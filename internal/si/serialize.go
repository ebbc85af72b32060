package si

import (
	"fmt"
	"reflect"
)

// Serializable lets a type override the default struct-tag-driven
// marshaling, mirroring the cxxtools `operator<<=`/`operator>>=` free
// function pairs used throughout the original codec layer.
type Serializable interface {
	SerializeSI(dst *Info) error
}

// Deserializable is the reverse hook: a type populates itself from an
// already-parsed Info subtree.
type Deserializable interface {
	DeserializeSI(src *Info) error
}

// Serialize composes v into dst ("dst <<= v" in the original's notation).
// Struct fields are visited in declaration order and named via the `si`
// tag, falling back to the Go field name. Unexported fields are skipped.
func Serialize(dst *Info, v any) error {
	if s, ok := v.(Serializable); ok {
		return s.SerializeSI(dst)
	}
	return serializeReflect(dst, reflect.ValueOf(v))
}

func serializeReflect(dst *Info, rv reflect.Value) error {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			dst.SetValueAsVoid()
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		dst.SetString(rv.String())
	case reflect.Bool:
		dst.SetBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetUint(rv.Uint())
	case reflect.Float32:
		dst.SetFloat(float32(rv.Float()))
	case reflect.Float64:
		dst.SetDouble(rv.Float())
	case reflect.Slice, reflect.Array:
		dst.SetArray()
		for idx := 0; idx < rv.Len(); idx++ {
			elem := dst.AddElement()
			if err := serializeReflect(elem, rv.Index(idx)); err != nil {
				return err
			}
		}
	case reflect.Map:
		dst.SetObject()
		iter := rv.MapRange()
		for iter.Next() {
			member := dst.AddMember(fmt.Sprint(iter.Key().Interface()))
			if err := serializeReflect(member, iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		dst.SetObject()
		t := rv.Type()
		for idx := 0; idx < t.NumField(); idx++ {
			field := t.Field(idx)
			if field.PkgPath != "" {
				continue // unexported
			}
			name := fieldName(field)
			if name == "-" {
				continue
			}
			member := dst.AddMember(name)
			if err := serializeReflect(member, rv.Field(idx)); err != nil {
				return fmt.Errorf("si: field %s: %w", field.Name, err)
			}
		}
	default:
		return fmt.Errorf("si: cannot serialize kind %s", rv.Kind())
	}
	return nil
}

// Deserialize populates v from src ("src >>= v").
func Deserialize(src *Info, v any) error {
	if d, ok := v.(Deserializable); ok {
		return d.DeserializeSI(src)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("si: Deserialize requires a non-nil pointer, got %T", v)
	}
	return deserializeReflect(src, rv.Elem())
}

func deserializeReflect(src *Info, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.String:
		s, err := src.AsString()
		if err != nil {
			return err
		}
		rv.SetString(s)
	case reflect.Bool:
		b, err := src.AsBool()
		if err != nil {
			return err
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := src.AsInt64()
		if err != nil {
			return err
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := src.AsUint64()
		if err != nil {
			return err
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := src.AsFloat64()
		if err != nil {
			return err
		}
		rv.SetFloat(f)
	case reflect.Ptr:
		if src.IsNull() {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return deserializeReflect(src, rv.Elem())
	case reflect.Slice:
		children := src.Children()
		out := reflect.MakeSlice(rv.Type(), len(children), len(children))
		for idx, c := range children {
			if err := deserializeReflect(c, out.Index(idx)); err != nil {
				return err
			}
		}
		rv.Set(out)
	case reflect.Map:
		out := reflect.MakeMapWithSize(rv.Type(), src.Len())
		keyType := rv.Type().Key()
		for _, c := range src.Children() {
			key := reflect.New(keyType).Elem()
			key.SetString(c.Name())
			val := reflect.New(rv.Type().Elem()).Elem()
			if err := deserializeReflect(c, val); err != nil {
				return err
			}
			out.SetMapIndex(key, val)
		}
		rv.Set(out)
	case reflect.Struct:
		t := rv.Type()
		for idx := 0; idx < t.NumField(); idx++ {
			field := t.Field(idx)
			if field.PkgPath != "" {
				continue
			}
			name := fieldName(field)
			if name == "-" {
				continue
			}
			member := src.FindMember(name)
			if member == nil {
				continue
			}
			if err := deserializeReflect(member, rv.Field(idx)); err != nil {
				return fmt.Errorf("si: field %s: %w", field.Name, err)
			}
		}
	default:
		return fmt.Errorf("si: cannot deserialize into kind %s", rv.Kind())
	}
	return nil
}

func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("si"); ok && tag != "" {
		return tag
	}
	return f.Name
}
