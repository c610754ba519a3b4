package formatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mcncl/gotoon/internal/models"
)

// Context tells the formatter where a scalar token will land. Inside an
// inline array or a table row, commas and brackets are structural and force
// quoting; on a plain `key: value` line they do not.
type Context int

const (
	ContextLine Context = iota
	ContextInline
)

var numberLiteralRegex = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Formatter renders scalar Values into TOON tokens and parses them back.
// The two directions live together because under-escaping on the way out is
// exactly what the parse direction exists to catch.
type Formatter struct{}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatScalar renders a non-container value as a TOON token.
// Containers are a caller bug; they render through the encoder, never here.
func (f *Formatter) FormatScalar(v models.Value, ctx Context) string {
	switch v.Kind {
	case models.Null:
		return "null"
	case models.Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case models.Number:
		// Re-emit the source lexeme untouched; reformatting would lose
		// precision or trailing zeros on round trip.
		return v.Num.Lexeme
	case models.String:
		if f.needsQuoting(v.Str, ctx) {
			return quoteString(v.Str)
		}
		return v.Str
	default:
		// Unreachable for well-formed input; quoting keeps the output
		// at least structurally valid.
		return quoteString(v.Str)
	}
}

// FormatKey renders an object key for a `key:` line or a table header column.
// Keys sit next to structural characters in both positions, so the rules are
// stricter than for string values.
func (f *Formatter) FormatKey(key string) string {
	if keyNeedsQuoting(key) {
		return quoteString(key)
	}
	return key
}

// ParseScalar is the inverse of FormatScalar: it turns a single isolated
// token back into a Value. Quoted tokens become strings; bare tokens resolve
// to null, booleans, numbers, or strings, in that order.
func (f *Formatter) ParseScalar(token string) (models.Value, error) {
	if strings.HasPrefix(token, `"`) {
		s, err := unquoteString(token)
		if err != nil {
			return models.Value{}, err
		}
		return models.StringValue(s), nil
	}
	switch token {
	case "null":
		return models.NullValue(), nil
	case "true":
		return models.BoolValue(true), nil
	case "false":
		return models.BoolValue(false), nil
	}
	if numberLiteralRegex.MatchString(token) {
		// The regex already guarantees syntax; only range errors remain,
		// and the lexeme is authoritative anyway.
		fl, _ := strconv.ParseFloat(token, 64)
		return models.NumberValue(token, fl), nil
	}
	return models.StringValue(token), nil
}

// ParseKey is the inverse of FormatKey.
func (f *Formatter) ParseKey(token string) (string, error) {
	if strings.HasPrefix(token, `"`) {
		return unquoteString(token)
	}
	return token, nil
}

// IsWellFormedToken reports whether a token is either a valid bare token for
// the given context or a properly closed, properly escaped quoted string.
// The validator leans on this for its ScalarWellFormedness check.
func (f *Formatter) IsWellFormedToken(token string, ctx Context) bool {
	if token == "" {
		return false
	}
	if strings.HasPrefix(token, `"`) {
		_, err := unquoteString(token)
		return err == nil
	}
	// A bare token must not be something the formatter would have quoted,
	// except for the literal/number forms which are legitimate bare output.
	if token == "null" || token == "true" || token == "false" {
		return true
	}
	if numberLiteralRegex.MatchString(token) {
		return true
	}
	return !f.needsQuoting(token, ctx)
}

// SplitFields splits a comma-separated field list (a table row or inline
// array body) on commas that sit outside quoted strings. A single space
// following a separator comma is cosmetic and is dropped.
func (f *Formatter) SplitFields(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	escaped := false
	for _, r := range s {
		if inQuotes {
			cur.WriteRune(r)
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inQuotes = false
			}
			continue
		}
		switch r {
		case '"':
			inQuotes = true
			cur.WriteRune(r)
		case ',':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	for i, fld := range fields {
		fields[i] = strings.TrimPrefix(fld, " ")
	}
	return fields
}

// needsQuoting applies the bare-token exclusion rules. Anything here that is
// too lax corrupts data silently on round trip, so the rules err on the side
// of quoting.
func (f *Formatter) needsQuoting(s string, ctx Context) bool {
	if s == "" {
		return true
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	for i, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
		if r == ':' {
			// Colon at end of token or followed by whitespace reads as a
			// key separator.
			rest := s[i+utf8.RuneLen(r):]
			if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
				return true
			}
		}
		if ctx == ContextInline && (r == ',' || r == '[' || r == ']' || r == '{' || r == '}' || r == '"') {
			return true
		}
	}
	switch s[0] {
	case '"', '[', ']', '{', '}':
		return true
	}
	// A leading list marker would be misread as block-list structure.
	if s == "-" || strings.HasPrefix(s, "- ") {
		return true
	}
	// Empty-container literals collide with the `{}` / `[]` renderings.
	if s == "{}" || s == "[]" {
		return true
	}
	// Bare forms that collide with non-string literals.
	if s == "null" || s == "true" || s == "false" {
		return true
	}
	return numberLiteralRegex.MatchString(s)
}

// keyNeedsQuoting is the stricter rule set for object keys and table column
// names, which always sit next to `:`, `,` or `}`.
func keyNeedsQuoting(key string) bool {
	if key == "" {
		return true
	}
	if strings.TrimSpace(key) != key {
		return true
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return true
		}
		switch r {
		case ':', ',', '[', ']', '{', '}', '"':
			return true
		}
	}
	return key[0] == '-'
}

// quoteString renders s as a double-quoted token with backslash escapes for
// the quote, the backslash, and all control characters.
func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unquoteString parses a double-quoted token, rejecting unterminated quotes,
// trailing garbage, and unknown escapes.
func unquoteString(token string) (string, error) {
	if len(token) < 2 || token[0] != '"' {
		return "", fmt.Errorf("not a quoted token: %q", token)
	}
	var b strings.Builder
	i := 1
	for i < len(token) {
		c := token[i]
		if c == '"' {
			if i != len(token)-1 {
				return "", fmt.Errorf("trailing characters after closing quote in %q", token)
			}
			return b.String(), nil
		}
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(token) {
			return "", fmt.Errorf("dangling escape in %q", token)
		}
		i++
		switch token[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			if i+4 >= len(token) {
				return "", fmt.Errorf("truncated \\u escape in %q", token)
			}
			code, err := strconv.ParseUint(token[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid \\u escape in %q: %w", token, err)
			}
			b.WriteRune(rune(code))
			i += 4
		default:
			return "", fmt.Errorf("unknown escape \\%c in %q", token[i], token)
		}
		i++
	}
	return "", fmt.Errorf("unterminated quoted token: %q", token)
}
