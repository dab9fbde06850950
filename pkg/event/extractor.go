package event

import (
	"reflect"
	"strings"
)

// Change is one field whose value differs between two versions of a record.
type Change struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Diff compares the exported fields of two structs of the same type by json
// name. Pointer fields are compared by the value they point to. Only fields
// listed in fields are considered; none means all.
func Diff(old, new interface{}, fields ...string) map[string]Change {
	changes := make(map[string]Change)
	oldVal, newVal := indirect(reflect.ValueOf(old)), indirect(reflect.ValueOf(new))
	if !oldVal.IsValid() || !newVal.IsValid() || oldVal.Type() != newVal.Type() || oldVal.Kind() != reflect.Struct {
		return changes
	}

	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}

	typ := oldVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if len(want) > 0 && !want[name] {
			continue
		}

		o, n := plain(oldVal.Field(i)), plain(newVal.Field(i))
		if !reflect.DeepEqual(o, n) {
			changes[name] = Change{Old: o, New: n}
		}
	}
	return changes
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func plain(v reflect.Value) interface{} {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}
