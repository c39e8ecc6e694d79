// Package params decodes backtest parameters passed as key=value tokens.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedParameter is returned for a token that is not key=value.
var ErrMalformedParameter = errors.New("malformed parameter")

// Parameter is a single named strategy input. Values are kept as strings.
type Parameter struct {
	Key   string
	Value string
}

// Parameters is an ordered set of parameters. Each key appears once, at the
// position it was first given.
type Parameters struct {
	items []Parameter
	index map[string]int
}

// New returns an empty parameter set.
func New() *Parameters {
	return &Parameters{index: make(map[string]int)}
}

// Decode parses raw key=value tokens in order. Tokens are split on the first
// '=', so "a=b=c" yields key "a" and value "b=c".
func Decode(tokens []string) (*Parameters, error) {
	p := New()
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: bad --param %q, expected key=value", ErrMalformedParameter, token)
		}
		p.Set(key, value)
	}
	return p, nil
}

// Set adds or replaces a parameter. A replaced key keeps its original position.
func (p *Parameters) Set(key, value string) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[key]; ok {
		p.items[i].Value = value
		return
	}
	p.index[key] = len(p.items)
	p.items = append(p.items, Parameter{Key: key, Value: value})
}

// Get returns the value for key.
func (p *Parameters) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	i, ok := p.index[key]
	if !ok {
		return "", false
	}
	return p.items[i].Value, true
}

// Len returns the number of parameters.
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// All returns the parameters in insertion order.
func (p *Parameters) All() []Parameter {
	if p == nil {
		return nil
	}
	out := make([]Parameter, len(p.items))
	copy(out, p.items)
	return out
}

// Map returns the parameters as a plain map.
func (p *Parameters) Map() map[string]string {
	out := make(map[string]string, p.Len())
	for _, item := range p.All() {
		out[item.Key] = item.Value
	}
	return out
}

// MarshalJSON encodes the parameters as a JSON object with members in
// insertion order.
func (p *Parameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range p.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(item.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshalString(item.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
