package httpclient

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// OAuthPrefix marks parameters that belong to the Signer. The codec never
// puts them on the wire.
const OAuthPrefix = "oauth_"

// Param is a single request parameter.
type Param struct {
	Key   string
	Value any
}

// Params is an insertion-ordered parameter set. Values may be strings, bools,
// integers, floats or fmt.Stringers.
type Params []Param

// Set replaces the value of an existing key in place or appends a new one.
func (p *Params) Set(key string, value any) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the formatted value for key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return FormatValue(kv.Value), true
		}
	}
	return "", false
}

// Del removes key.
func (p *Params) Del(key string) {
	out := (*p)[:0]
	for _, kv := range *p {
		if kv.Key != key {
			out = append(out, kv)
		}
	}
	*p = out
}

// Clone returns a copy that can be modified independently.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	return append(Params(nil), p...)
}

// WireParams returns the parameters that are encoded onto the wire, i.e.
// everything without the oauth_ prefix.
func (p Params) WireParams() Params {
	out := make(Params, 0, len(p))
	for _, kv := range p {
		if !strings.HasPrefix(kv.Key, OAuthPrefix) {
			out = append(out, kv)
		}
	}
	return out
}

// Map returns the formatted values keyed by name.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, kv := range p {
		m[kv.Key] = FormatValue(kv.Value)
	}
	return m
}

// FormatValue renders a parameter value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// EncodeQueryString renders the wire parameters as k=v&k=v with keys and
// values percent-escaped. Insertion order is kept.
func EncodeQueryString(p Params) string {
	return joinParams(p.WireParams(), Escape)
}

// QueryString renders the wire parameters as k=v&k=v without escaping. It is
// used for raw bodies.
func QueryString(p Params) string {
	return joinParams(p.WireParams(), func(s string) string { return s })
}

func joinParams(p Params, enc func(string) string) string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(enc(kv.Key))
		b.WriteByte('=')
		b.WriteString(enc(FormatValue(kv.Value)))
	}
	return b.String()
}

// DecodeQueryString parses k=v&k=v. Pairs without '=' or without a value are
// skipped; later duplicates overwrite earlier ones.
func DecodeQueryString(s string) Params {
	var p Params
	for _, pair := range strings.Split(s, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		p.Set(unescape(key), unescape(value))
	}
	return p
}

func unescape(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

// shouldEscape reports whether c is percent-encoded by Escape. Only ASCII
// letters, digits and "-._~[]" pass through; that covers the usual unsafe
// characters plus the reserved set :/?&=;+!@#$()',*.
func shouldEscape(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '~', '[', ']':
		return false
	}
	return true
}

// Escape percent-encodes s as a query component.
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	const hex = "0123456789ABCDEF"
	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			buf = append(buf, '%', hex[c>>4], hex[c&15])
			continue
		}
		buf = append(buf, c)
	}
	return string(buf)
}

// ParamsFromStruct converts a struct with `url` tags into Params using
// go-querystring. Keys are sorted; multi-valued fields are joined with commas.
func ParamsFromStruct(v any) (Params, error) {
	values, err := query.Values(v)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := make(Params, 0, len(keys))
	for _, k := range keys {
		p = append(p, Param{Key: k, Value: strings.Join(values[k], ",")})
	}
	return p, nil
}
