package endpoint

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// maxFieldLength bounds any single decoded value.
const maxFieldLength = 1024

// Unmarshal populates dst (must be a non-nil pointer to a struct) from the
// request.
//
// Supported struct tags:
//   - `path:"name"` reads r.PathValue(name)
//   - `query:"name"` reads the first r.URL.Query() value
//   - `path:"-"` (or `query:"-"`) ignores the field
//
// A tag with an empty name defaults to the lowercased field name. If both
// tags are present, path takes precedence. Fields with no data present are
// left unchanged. Untagged and unexported fields are skipped. Tagged fields
// must be strings.
//
// The zero-size struct{} needs no decoding and is accepted as is.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct"))
	}

	t := root.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		value, source, name, ok := lookupField(r, sf)
		if !ok {
			continue
		}
		if len(value) > maxFieldLength {
			return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: value exceeds max length %d", source, name, sf.Name, maxFieldLength))
		}
		field := root.Field(i)
		if field.Kind() != reflect.String {
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: %s %q -> %s: unsupported kind %s", source, name, sf.Name, field.Kind()))
		}
		field.SetString(value)
	}
	return nil
}

// lookupField returns the raw value for sf; ok is false when the request
// carries none.
func lookupField(r *http.Request, sf reflect.StructField) (value, source, name string, ok bool) {
	for _, src := range []string{"path", "query"} {
		tag, has := sf.Tag.Lookup(src)
		if !has {
			continue
		}
		name = strings.TrimSpace(strings.Split(tag, ",")[0])
		if name == "-" {
			return "", src, name, false
		}
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		switch src {
		case "path":
			if v := r.PathValue(name); v != "" {
				return v, src, name, true
			}
		case "query":
			if r.URL == nil {
				continue
			}
			if vs := r.URL.Query()[name]; len(vs) > 0 {
				return vs[0], src, name, true
			}
		}
	}
	return "", source, name, false
}
