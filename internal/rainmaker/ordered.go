package rainmaker

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/iancoleman/orderedmap"
)

// Object is a decoded JSON object that remembers the order of its keys.
// RainMaker payloads are printed in the order the API sent them, which a
// plain map[string]any would lose.
type Object struct {
	m *orderedmap.OrderedMap
}

// NewObject builds an Object from alternating key/value pairs.
func NewObject(kv ...any) *Object {
	o := &Object{m: orderedmap.New()}
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return o
}

// Set adds or replaces a key. A replaced key keeps its original position.
func (o *Object) Set(key string, v any) {
	if o.m == nil {
		o.m = orderedmap.New()
	}
	o.m.Set(key, v)
}

// Get returns the value for key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil || o.m == nil {
		return nil, false
	}
	return o.m.Get(key)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return len(o.m.Keys())
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	if o == nil || o.m == nil {
		return nil
	}
	src := o.m.Keys()
	keys := make([]string, len(src))
	copy(keys, src)
	return keys
}

// Values returns the values in document order.
func (o *Object) Values() []any {
	if o == nil || o.m == nil {
		return nil
	}
	vals := make([]any, 0, len(o.m.Keys()))
	for _, k := range o.m.Keys() {
		v, _ := o.m.Get(k)
		vals = append(vals, v)
	}
	return vals
}

// MarshalJSON writes the object back out with its original key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	if o.m == nil {
		return []byte("{}"), nil
	}
	return o.m.MarshalJSON()
}

// Decode parses a JSON document. Objects become *Object, arrays []any and
// numbers json.Number. A key that appears twice moves to its last position
// and keeps the last value.
func Decode(data []byte) (any, error) {
	// Reject trailing data and malformed input before wrapping, so the
	// document cannot close the envelope early.
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	envelope := orderedmap.New()
	doc := make([]byte, 0, len(raw)+6)
	doc = append(doc, `{"v":`...)
	doc = append(doc, raw...)
	doc = append(doc, '}')
	if err := envelope.UnmarshalJSON(doc); err != nil {
		return nil, err
	}
	v, _ := envelope.Get("v")
	return convert(v), nil
}

// convert turns orderedmap output into the package's value model.
func convert(v any) any {
	switch t := v.(type) {
	case orderedmap.OrderedMap:
		return fromOrderedMap(&t)
	case *orderedmap.OrderedMap:
		return fromOrderedMap(t)
	case map[string]any:
		// a duplicate key can leave a nested object undecorated; order is lost
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := &Object{m: orderedmap.New()}
		for _, k := range keys {
			o.Set(k, convert(t[k]))
		}
		return o
	case []any:
		arr := make([]any, len(t))
		for i, e := range t {
			arr[i] = convert(e)
		}
		return arr
	case float64:
		return json.Number(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return t
	}
}

func fromOrderedMap(m *orderedmap.OrderedMap) *Object {
	o := &Object{m: orderedmap.New()}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		o.Set(k, convert(v))
	}
	return o
}
