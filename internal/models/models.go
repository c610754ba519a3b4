package models

// DefaultMaxDepth is the nesting ceiling shared by the parser and the
// encoder. Depth equals JSON nesting depth, so this also caps recursion.
const DefaultMaxDepth = 200

// Kind identifies which variant a Value holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// String returns the kind name, mostly for diagnostics and test output.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the in-memory representation of a parsed JSON value. Exactly one
// variant is meaningful, selected by Kind. Values are built once by the
// parser and never mutated afterwards.
//
// Object members are kept as an ordered slice rather than a map: source key
// order determines render order and must survive a round trip.
type Value struct {
	Kind    Kind
	Bool    bool
	Num     Num
	Str     string
	Items   []Value
	Members []Member
}

// Member is a single key/value entry of an object.
type Member struct {
	Key   string
	Value Value
}

// Num carries a JSON number. Lexeme is the exact source text and is what gets
// re-emitted, so large integers and trailing zeros survive unchanged; Float
// is a best-effort parsed form for comparisons.
type Num struct {
	Lexeme string
	Float  float64
}

// Constructors. The parser and the decoder both build trees through these.

func NullValue() Value {
	return Value{Kind: Null}
}

func BoolValue(b bool) Value {
	return Value{Kind: Bool, Bool: b}
}

func NumberValue(lexeme string, f float64) Value {
	return Value{Kind: Number, Num: Num{Lexeme: lexeme, Float: f}}
}

func StringValue(s string) Value {
	return Value{Kind: String, Str: s}
}

func ArrayValue(items []Value) Value {
	return Value{Kind: Array, Items: items}
}

func ObjectValue(members []Member) Value {
	return Value{Kind: Object, Members: members}
}

// IsScalar reports whether v is a non-container value.
func (v Value) IsScalar() bool {
	return v.Kind != Array && v.Kind != Object
}

// Keys returns the object's keys in member order. Nil for non-objects.
func (v Value) Keys() []string {
	if v.Kind != Object {
		return nil
	}
	keys := make([]string, len(v.Members))
	for i, m := range v.Members {
		keys[i] = m.Key
	}
	return keys
}

// Lookup returns the member value for key, scanning in order.
func (v Value) Lookup(key string) (Value, bool) {
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Equal reports structural equality, including member order and numeric
// lexemes. This is the equality the round-trip property is stated in.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Null:
		return true
	case Bool:
		return v.Bool == other.Bool
	case Number:
		return v.Num.Lexeme == other.Num.Lexeme
	case String:
		return v.Str == other.Str
	case Array:
		if len(v.Items) != len(other.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.Members) != len(other.Members) {
			return false
		}
		for i := range v.Members {
			if v.Members[i].Key != other.Members[i].Key {
				return false
			}
			if !v.Members[i].Value.Equal(other.Members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// TableShape describes an array that the analyzer judged tabular: the column
// set (key order of the first element) and one row of cell values per
// element, in column order. Derived on demand, never stored.
type TableShape struct {
	Columns []string
	Rows    [][]Value
}
