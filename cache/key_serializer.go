package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-catalog-cache/search"
)

const (
	entityKeyInfix = "_id_"
	queryKeyPrefix = "search_"
	queryKeyInfix  = "_query_params_"
	hashedPrefix   = "xxh64:"
)

// KeyBuilder derives cache keys for entities and query descriptors.
type KeyBuilder struct {
	maxLength int
}

// KeyOption configures a KeyBuilder.
type KeyOption func(*KeyBuilder)

// WithMaxCanonicalLength replaces canonical query forms longer than n bytes
// with an xxhash digest. Zero keeps the canonical form verbatim.
func WithMaxCanonicalLength(n int) KeyOption {
	return func(b *KeyBuilder) {
		if n > 0 {
			b.maxLength = n
		}
	}
}

// NewKeyBuilder creates a KeyBuilder.
func NewKeyBuilder(opts ...KeyOption) *KeyBuilder {
	b := &KeyBuilder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EntityKey returns "<kind>_id_<id>".
func (b *KeyBuilder) EntityKey(kind, id string) string {
	return kind + entityKeyInfix + id
}

// QueryKey returns "search_<kind>_query_params_<canonical>" where canonical is
// the canonical encoding of the query body. Multi-field match lists are sorted
// first since their order does not change the result set.
func (b *KeyBuilder) QueryKey(kind string, q search.Query) string {
	if q.Match != nil && len(q.Match.Fields) > 1 {
		m := *q.Match
		m.Fields = slices.Clone(m.Fields)
		sort.Strings(m.Fields)
		q.Match = &m
	}

	canonical := Canonicalize(q.Body())
	if b.maxLength > 0 && len(canonical) > b.maxLength {
		canonical = hashedPrefix + strconv.FormatUint(xxhash.Sum64String(canonical), 16)
	}

	return queryKeyPrefix + kind + queryKeyInfix + canonical
}

// Canonicalize encodes v into a deterministic compact string.
//
// Maps are emitted with sorted keys, slices keep their order, structs are
// encoded like maps keyed by their JSON field names, strings are JSON quoted
// and numbers use their shortest representation. Values that are equal as
// data produce the same output regardless of map insertion order.
func Canonicalize(v any) string {
	var sb strings.Builder
	writeCanonical(&sb, reflect.ValueOf(v))
	return sb.String()
}

func writeCanonical(sb *strings.Builder, rv reflect.Value) {
	if !rv.IsValid() {
		sb.WriteString("null")
		return
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		writeCanonical(sb, rv.Elem())

	case reflect.Map:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		keys := rv.MapKeys()
		entries := make([]canonicalEntry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, canonicalEntry{name: mapKeyString(k), value: rv.MapIndex(k)})
		}
		writeObject(sb, entries)

	case reflect.Struct:
		rt := rv.Type()
		entries := make([]canonicalEntry, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			entries = append(entries, canonicalEntry{name: name, value: rv.Field(i)})
		}
		writeObject(sb, entries)

	case reflect.Slice:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		writeArray(sb, rv)

	case reflect.Array:
		writeArray(sb, rv)

	case reflect.String:
		writeString(sb, rv.String())

	case reflect.Bool:
		sb.WriteString(strconv.FormatBool(rv.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		sb.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))

	default:
		// Funcs, channels and complex numbers carry no stable structural value.
		sb.WriteString(jsonFallback(rv))
	}
}

type canonicalEntry struct {
	name  string
	value reflect.Value
}

func writeObject(sb *strings.Builder, entries []canonicalEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	sb.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeString(sb, e.name)
		sb.WriteByte(':')
		writeCanonical(sb, e.value)
	}
	sb.WriteByte('}')
}

func writeArray(sb *strings.Builder, rv reflect.Value) {
	sb.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeCanonical(sb, rv.Index(i))
	}
	sb.WriteByte(']')
}

func writeString(sb *strings.Builder, s string) {
	quoted, err := json.Marshal(s)
	if err != nil {
		sb.WriteString(strconv.Quote(s))
		return
	}
	sb.Write(quoted)
}

func mapKeyString(k reflect.Value) string {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	var sb strings.Builder
	writeCanonical(&sb, k)
	return sb.String()
}

func jsonFallback(rv reflect.Value) string {
	if rv.CanInterface() {
		if data, err := json.Marshal(rv.Interface()); err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%q", "unsupported:"+rv.Type().String())
}
