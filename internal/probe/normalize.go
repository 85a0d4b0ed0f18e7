package probe

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/rflorenc/rainmaker-workbench/internal/rainmaker"
)

const (
	// MaxListedNodes caps the node lines printed by a run.
	MaxListedNodes = 20
	// MaxParamKeys caps the sampled parameter keys.
	MaxParamKeys = 50

	unknownNodeID = "<unknown>"
)

var (
	nodeIDKeys   = []string{"nodeid", "id", "node_id"}
	nodeNameKeys = []string{"name", "Name"}
)

// NormalizeNodes flattens the node listing into a sequence of node records.
// Accepted shapes:
//
//	[...]                        sequence, used as is
//	{"nodes": [...]}             wrapped sequence
//	{"nodes": {"id": {...}}}     wrapped mapping, values in document order
//	{"id": {...}, ...}           bare mapping, values in document order
//
// Anything else, including nil, yields an empty sequence.
func NormalizeNodes(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case *rainmaker.Object:
		if inner, ok := t.Get("nodes"); ok {
			switch in := inner.(type) {
			case []any:
				return in
			case *rainmaker.Object:
				return in.Values()
			}
		}
		return t.Values()
	}
	return nil
}

// NodeID resolves a node identifier from nodeid, id or node_id, in that
// order. Records without one get "<unknown>"; non-mapping entries are their
// own identifier.
func NodeID(node any) string {
	obj, ok := node.(*rainmaker.Object)
	if !ok {
		return display(node)
	}
	if v, ok := firstTruthy(obj, nodeIDKeys); ok {
		return display(v)
	}
	return unknownNodeID
}

// NodeName resolves a display name from name or Name, or "" when absent.
func NodeName(node any) string {
	obj, ok := node.(*rainmaker.Object)
	if !ok {
		return ""
	}
	if v, ok := firstTruthy(obj, nodeNameKeys); ok {
		return display(v)
	}
	return ""
}

// ParamKeys returns up to limit parameter names. A payload with exactly one
// key whose value is itself a mapping is unwrapped first, so both
// {"a1": {"power": true}} and {"power": true} yield ["power"].
func ParamKeys(params any, limit int) []string {
	obj, ok := params.(*rainmaker.Object)
	if !ok {
		return []string{}
	}
	if obj.Len() == 1 {
		if inner, ok := obj.Values()[0].(*rainmaker.Object); ok {
			obj = inner
		}
	}
	keys := obj.Keys()
	if keys == nil {
		keys = []string{}
	}
	if limit >= 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// FormatKeys renders keys as a bracketed list of quoted names,
// e.g. ['power', 'brightness'].
func FormatKeys(keys []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteKey(k))
	}
	b.WriteByte(']')
	return b.String()
}

func quoteKey(k string) string {
	q := byte('\'')
	if strings.Contains(k, "'") && !strings.Contains(k, `"`) {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range k {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case !unicode.IsPrint(r):
			switch {
			case r <= 0xff:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r <= 0xffff:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func firstTruthy(obj *rainmaker.Object, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj.Get(k); ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// truthy treats nil, false, "", zero and empty containers as missing.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case *rainmaker.Object:
		return t.Len() > 0
	}
	return true
}

// display renders a value as JSON text, except strings which stay bare.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case *rainmaker.Object, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}
