package query

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Param is a single query parameter. Value may be any scalar, slice or map.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered set of query parameters. Order is preserved by every
// parser in this package.
type Params []Param

// Parser encodes params into a query string without the leading "?".
type Parser func(Params) string

// FromMap converts a map into Params with keys sorted, which gives Go maps a
// stable encoding order.
func FromMap(m map[string]any) Params {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make(Params, 0, len(keys))
	for _, k := range keys {
		params = append(params, Param{Key: k, Value: m[k]})
	}
	return params
}

// Add appends a parameter and returns the extended set
func (p Params) Add(key string, value any) Params {
	return append(p, Param{Key: key, Value: value})
}

// Get returns the first value stored under key
func (p Params) Get(key string) (any, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return nil, false
}

// DefaultParser encodes params as key=value pairs joined by "&", leaving
// reserved characters unescaped and joining slices with commas.
func DefaultParser(params Params) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = appendPairs(parts, p.Key, p.Value)
	}
	return strings.Join(parts, "&")
}

func appendPairs(parts []string, key string, value any) []string {
	if value == nil {
		return append(parts, key+"=")
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(parts, key+"=")
		}
		return appendPairs(parts, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if b, ok := value.([]byte); ok {
			return append(parts, key+"="+string(b))
		}
		if rv.Len() == 0 {
			return parts
		}
		items := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items = append(items, stringify(rv.Index(i).Interface()))
		}
		return append(parts, key+"="+strings.Join(items, ","))
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		values := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := stringify(iter.Key().Interface())
			keys = append(keys, k)
			values[k] = iter.Value().Interface()
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = appendPairs(parts, key+"["+k+"]", values[k])
		}
		return parts
	default:
		return append(parts, key+"="+stringify(value))
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// URLEncodedParser is a strict alternative to DefaultParser: values are
// percent-encoded and slices repeat their key (a=1&a=2).
func URLEncodedParser(params Params) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		rv := reflect.ValueOf(p.Value)
		if p.Value != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
			if _, ok := p.Value.([]byte); !ok {
				for i := 0; i < rv.Len(); i++ {
					parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(stringify(rv.Index(i).Interface())))
				}
				continue
			}
		}
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(stringify(p.Value)))
	}
	return strings.Join(parts, "&")
}

// Named returns a built-in parser by name ("comma" or "urlencoded").
func Named(name string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "comma", "default":
		return DefaultParser, nil
	case "urlencoded", "strict":
		return URLEncodedParser, nil
	default:
		return nil, fmt.Errorf("unknown query format: %s", name)
	}
}
