package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known state columns of the bundled schemas
const (
	StateResting      = "LYING_DOWN"
	StateCategory     = "category"
	StateMuted        = "device muted"
	StateBatteryLevel = "battery level"
)

// ValueKind is the declared type of a log column
type ValueKind int

const (
	KindString ValueKind = iota
	KindFloat
	KindBool
	KindInt
	KindTimestamp
)

var kindNames = [...]string{"string", "float", "bool", "int", "timestamp"}

func (k ValueKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is one typed cell. Valid is false when the log marked the
// reading as unsupported by the recording device.
type Value struct {
	Kind  ValueKind
	Valid bool
	Str   string
	Float float64
	Bool  bool
	Int   int64
	Time  time.Time
}

func StringValue(s string) Value     { return Value{Kind: KindString, Valid: true, Str: s} }
func FloatValue(f float64) Value     { return Value{Kind: KindFloat, Valid: true, Float: f} }
func BoolValue(b bool) Value         { return Value{Kind: KindBool, Valid: true, Bool: b} }
func IntValue(i int64) Value         { return Value{Kind: KindInt, Valid: true, Int: i} }
func TimeValue(t time.Time) Value    { return Value{Kind: KindTimestamp, Valid: true, Time: t} }
func NullValue(kind ValueKind) Value { return Value{Kind: kind} }

// Interface returns the Go value held by v, or nil when v is not valid
func (v Value) Interface() any {
	if !v.Valid {
		return nil
	}
	switch v.Kind {
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindTimestamp:
		return v.Time
	default:
		return v.Str
	}
}

func (v Value) String() string {
	if !v.Valid {
		return "<unsupported>"
	}
	return fmt.Sprint(v.Interface())
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UserState is the schema-specific payload attached to a sample: the
// non-location columns of a row, keyed by column name.
type UserState struct {
	variant string
	names   []string
	values  map[string]Value
}

// NewUserState builds a state for the named schema variant. names and
// values are parallel; both slices are copied.
func NewUserState(variant string, names []string, values []Value) UserState {
	s := UserState{
		variant: variant,
		names:   make([]string, len(names)),
		values:  make(map[string]Value, len(names)),
	}
	copy(s.names, names)
	for i, name := range names {
		if i < len(values) {
			s.values[name] = values[i]
		}
	}
	return s
}

// Variant returns the name of the schema that produced the state
func (s UserState) Variant() string { return s.variant }

// Names returns the state columns in schema order
func (s UserState) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s UserState) Len() int { return len(s.names) }

func (s UserState) Value(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s UserState) Bool(name string) (bool, bool) {
	v, ok := s.values[name]
	if !ok || !v.Valid || v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

func (s UserState) Float(name string) (float64, bool) {
	v, ok := s.values[name]
	if !ok || !v.Valid || v.Kind != KindFloat {
		return 0, false
	}
	return v.Float, true
}

func (s UserState) Text(name string) (string, bool) {
	v, ok := s.values[name]
	if !ok || !v.Valid || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// Resting reports the minimal variant's lying-down flag
func (s UserState) Resting() bool {
	b, _ := s.Bool(StateResting)
	return b
}

func (s UserState) Category() string {
	c, _ := s.Text(StateCategory)
	return c
}

func (s UserState) Muted() bool {
	b, _ := s.Bool(StateMuted)
	return b
}

// BatteryLevel returns the battery charge in [0,1]
func (s UserState) BatteryLevel() (float64, bool) {
	return s.Float(StateBatteryLevel)
}

func (s UserState) MarshalJSON() ([]byte, error) {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return json.Marshal(out)
}
