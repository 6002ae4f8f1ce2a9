// Package jsonval models arbitrary JSON documents as an explicit tagged union so that
// traversal code can switch over every possible node kind.
package jsonval

import (
	"encoding/json"
	"fmt"
)

type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Member is a single key/value pair of an Object. Members keep the order in which they
// were parsed, but nothing in the package depends on that order for equality.
type Member struct {
	Key   string
	Value Value
}

// Value is one node of a JSON tree. The zero Value is JSON null.
type Value struct {
	kind    Kind
	b       bool
	s       string // string payload or number literal
	items   []Value
	members []Member
}

func NewNull() Value { return Value{} }

func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

func NewNumber(n json.Number) Value { return Value{kind: Number, s: string(n)} }

func NewString(s string) Value { return Value{kind: String, s: s} }

func NewArray(items ...Value) Value { return Value{kind: Array, items: items} }

// NewObject builds an object; a repeated key replaces the earlier member.
func NewObject(members ...Member) Value {
	v := Value{kind: Object}
	for _, m := range members {
		v.members = setMember(v.members, m.Key, m.Value)
	}

	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsScalar() bool { return v.kind != Array && v.kind != Object }

func (v Value) Bool() bool { return v.b }

func (v Value) Number() json.Number {
	if v.kind != Number {
		return ""
	}

	return json.Number(v.s)
}

// Str returns the payload of a String value and "" for every other kind.
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}

	return v.s
}

func (v Value) Items() []Value { return v.items }

func (v Value) Members() []Member { return v.members }

// Len is the number of items or members; scalars have length 0.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	}

	return 0
}

// Keys lists object keys in parse order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.members))
	for _, m := range v.members {
		keys = append(keys, m.Key)
	}

	return keys
}

// Get looks up a key of an Object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}

	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}

	return Value{}, false
}

// Lookup follows a chain of object keys from v.
func (v Value) Lookup(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}

	return cur, true
}

// Render is the textual form used for substring matching: the raw text of strings,
// the literal of numbers and booleans, "null", and compact JSON for containers.
func (v Value) Render() string {
	switch v.kind {
	case String:
		return v.s
	case Number:
		return v.s
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Null:
		return "null"
	}

	raw, err := v.MarshalJSON()
	if err != nil {
		return ""
	}

	return string(raw)
}

func (v Value) String() string { return v.Render() }

func setMember(members []Member, key string, val Value) []Member {
	for i := range members {
		if members[i].Key == key {
			members[i].Value = val
			return members
		}
	}

	return append(members, Member{Key: key, Value: val})
}

// Equal reports structural equality. Object member order is ignored; numbers compare by
// their literal text.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number, String:
		return a.s == b.s
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	}

	return false
}
