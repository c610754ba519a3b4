package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcncl/gotoon/internal/formatter"
)

// DiagnosticKind labels a class of structural defect.
type DiagnosticKind string

const (
	IndentationConsistency DiagnosticKind = "IndentationConsistency"
	TableArityMatch        DiagnosticKind = "TableArityMatch"
	KeyUniqueness          DiagnosticKind = "KeyUniqueness"
	ScalarWellFormedness   DiagnosticKind = "ScalarWellFormedness"
	BalancedContainers     DiagnosticKind = "BalancedContainers"
)

// Diagnostic reports one violation found during the scan. Line and Column
// are 1-based; diagnostics appear in discovery order, top to bottom.
type Diagnostic struct {
	Kind    DiagnosticKind
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Kind, d.Message)
}

// Validator re-scans generated TOON text structurally. It is a pure,
// read-only check: it never mutates its input and never re-encodes.
// Scanning continues past failures and collects every violation it finds.
type Validator struct {
	fmtr *formatter.Formatter
}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{fmtr: formatter.NewFormatter()}
}

type frameKind int

const (
	frameBlock frameKind = iota
	frameTable
)

// frame tracks one open block or table while scanning. depth is the indent
// level (in two-space units) its entries must sit at.
type frame struct {
	kind     frameKind
	depth    int
	keys     map[string]struct{}
	rowsLeft int
	fields   int
	headerLn int
}

type scan struct {
	v          *Validator
	diags      []Diagnostic
	stack      []*frame
	sawContent bool
	lastLine   int
}

// Validate checks toon for structural well-formedness and returns whether it
// passed along with every diagnostic discovered.
func (v *Validator) Validate(toon string) (bool, []Diagnostic) {
	s := &scan{v: v, stack: []*frame{{kind: frameBlock, depth: 0}}}
	if strings.TrimSpace(toon) == "" {
		s.report(ScalarWellFormedness, 1, 1, "document is empty")
		return false, s.diags
	}
	for i, line := range strings.Split(toon, "\n") {
		s.lastLine = i + 1
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.line(i+1, line)
	}
	// Tables still waiting for rows at EOF are short.
	for j := len(s.stack) - 1; j >= 0; j-- {
		if f := s.stack[j]; f.kind == frameTable && f.rowsLeft > 0 {
			s.report(TableArityMatch, s.lastLine, 1,
				fmt.Sprintf("table declared on line %d is missing %d row(s)", f.headerLn, f.rowsLeft))
		}
	}
	return len(s.diags) == 0, s.diags
}

func (s *scan) report(kind DiagnosticKind, line, col int, msg string) {
	s.diags = append(s.diags, Diagnostic{Kind: kind, Line: line, Column: col, Message: msg})
}

func (s *scan) top() *frame {
	return s.stack[len(s.stack)-1]
}

func (s *scan) line(ln int, raw string) {
	indent := len(raw) - len(strings.TrimLeft(raw, " "))
	col := indent + 1
	content := raw[indent:]
	if indent%2 != 0 {
		s.report(IndentationConsistency, ln, 1,
			fmt.Sprintf("leading space count %d is not a multiple of 2", indent))
	}
	level := indent / 2

	// A table consumes lines at its row depth before anything else.
	if t := s.top(); t.kind == frameTable && level == t.depth {
		if t.rowsLeft > 0 {
			s.tableRow(ln, col, content, t)
			return
		}
		s.report(TableArityMatch, ln, col,
			fmt.Sprintf("unexpected extra row for table declared on line %d", t.headerLn))
		return
	}

	// Dedent: close every context deeper than this line.
	for len(s.stack) > 1 && s.top().depth > level {
		if f := s.top(); f.kind == frameTable && f.rowsLeft > 0 {
			s.report(TableArityMatch, ln, col,
				fmt.Sprintf("table declared on line %d is missing %d row(s)", f.headerLn, f.rowsLeft))
		}
		s.stack = s.stack[:len(s.stack)-1]
	}
	if s.top().depth != level {
		s.report(IndentationConsistency, ln, 1,
			fmt.Sprintf("indent level %d exceeds enclosing block level %d by more than one step", level, s.top().depth))
		return
	}

	switch {
	case content == "-" || strings.HasPrefix(content, "- "):
		s.listItem(ln, col, content, level)
	default:
		if hdr, ok := s.v.tryParseHeader(content); ok {
			s.header(ln, col, hdr, level)
			return
		}
		if looksLikeHeader(content) {
			s.report(BalancedContainers, ln, col,
				"malformed table header: brackets or braces do not close on this line")
			return
		}
		if key, value, ok, perr := s.v.splitKeyLine(content); ok {
			if perr != nil {
				s.report(ScalarWellFormedness, ln, col, perr.Error())
				return
			}
			s.keyLine(ln, col, key, value, level)
			return
		}
		// Only a root document that is a single scalar or inline array may
		// carry a keyless content line.
		if level == 0 && !s.sawContent {
			s.rootFragment(ln, col, content)
			s.sawContent = true
			return
		}
		s.report(IndentationConsistency, ln, col,
			"line is neither a key, a list item, a table header, nor a table row in this context")
	}
	s.sawContent = true
}

func (s *scan) tableRow(ln, col int, content string, t *frame) {
	t.rowsLeft--
	fields := s.v.fmtr.SplitFields(content)
	if len(fields) != t.fields {
		s.report(TableArityMatch, ln, col,
			fmt.Sprintf("row has %d field(s), table declared on line %d expects %d", len(fields), t.headerLn, t.fields))
	}
	for _, fld := range fields {
		if !s.v.fmtr.IsWellFormedToken(fld, formatter.ContextInline) {
			s.report(ScalarWellFormedness, ln, col,
				fmt.Sprintf("table cell %q is neither a bare token nor a closed quoted string", fld))
		}
	}
}

func (s *scan) listItem(ln, col int, content string, level int) {
	if content == "-" {
		// Bare marker opens a nested block for a container element.
		s.stack = append(s.stack, &frame{kind: frameBlock, depth: level + 1})
		s.sawContent = true
		return
	}
	s.value(ln, col, strings.TrimPrefix(content, "- "))
	s.sawContent = true
}

func (s *scan) keyLine(ln, col int, key, value string, level int) {
	f := s.top()
	if f.keys == nil {
		f.keys = make(map[string]struct{})
	}
	if _, dup := f.keys[key]; dup {
		s.report(KeyUniqueness, ln, col, fmt.Sprintf("key %q repeats within its block", key))
	}
	f.keys[key] = struct{}{}
	if value == "" {
		s.stack = append(s.stack, &frame{kind: frameBlock, depth: level + 1})
		s.sawContent = true
		return
	}
	s.value(ln, col, value)
	s.sawContent = true
}

type header struct {
	key     string
	hasKey  bool
	rows    int
	columns []string
}

func (s *scan) header(ln, col int, hdr header, level int) {
	if hdr.hasKey {
		f := s.top()
		if f.keys == nil {
			f.keys = make(map[string]struct{})
		}
		if _, dup := f.keys[hdr.key]; dup {
			s.report(KeyUniqueness, ln, col, fmt.Sprintf("key %q repeats within its block", hdr.key))
		}
		f.keys[hdr.key] = struct{}{}
	}
	seen := make(map[string]struct{}, len(hdr.columns))
	for _, c := range hdr.columns {
		name, err := s.v.fmtr.ParseKey(c)
		if err != nil {
			s.report(ScalarWellFormedness, ln, col, fmt.Sprintf("column name %s", err))
			continue
		}
		if _, dup := seen[name]; dup {
			s.report(KeyUniqueness, ln, col, fmt.Sprintf("column %q repeats in table header", name))
		}
		seen[name] = struct{}{}
	}
	s.stack = append(s.stack, &frame{
		kind:     frameTable,
		depth:    level + 1,
		rowsLeft: hdr.rows,
		fields:   len(hdr.columns),
		headerLn: ln,
	})
	s.sawContent = true
}

// value checks the token after `key: ` or a list marker: an inline array, an
// empty-container literal, or a single scalar token.
func (s *scan) value(ln, col int, value string) {
	switch {
	case strings.HasPrefix(value, "["):
		s.inlineArray(ln, col, value)
	case strings.HasPrefix(value, "{"):
		if value != "{}" {
			s.report(BalancedContainers, ln, col,
				fmt.Sprintf("brace form %q must be the empty object literal {}", value))
		}
	default:
		if !s.v.fmtr.IsWellFormedToken(value, formatter.ContextLine) {
			s.report(ScalarWellFormedness, ln, col,
				fmt.Sprintf("token %q is neither a bare token nor a closed quoted string", value))
		}
	}
}

func (s *scan) inlineArray(ln, col int, value string) {
	if !balancedBrackets(value) || !strings.HasSuffix(value, "]") {
		s.report(BalancedContainers, ln, col,
			fmt.Sprintf("inline array %q does not close on its own line", value))
		return
	}
	inner := value[1 : len(value)-1]
	if strings.TrimSpace(inner) == "" {
		return
	}
	for _, fld := range s.v.fmtr.SplitFields(inner) {
		if !s.v.fmtr.IsWellFormedToken(fld, formatter.ContextInline) {
			s.report(ScalarWellFormedness, ln, col,
				fmt.Sprintf("inline array element %q is neither a bare token nor a closed quoted string", fld))
		}
	}
}

func (s *scan) rootFragment(ln, col int, content string) {
	switch {
	case strings.HasPrefix(content, "["):
		s.inlineArray(ln, col, content)
	case content == "{}":
	default:
		if !s.v.fmtr.IsWellFormedToken(content, formatter.ContextLine) {
			s.report(ScalarWellFormedness, ln, col,
				fmt.Sprintf("token %q is neither a bare token nor a closed quoted string", content))
		}
	}
}

// splitKeyLine splits `key: value` / `key:` content. ok is false when the
// line carries no key separator at all; a non-nil error means the key token
// itself is broken.
func (v *Validator) splitKeyLine(content string) (key, value string, ok bool, err error) {
	if strings.HasPrefix(content, `"`) {
		end := quotedTokenEnd(content)
		if end < 0 {
			return "", "", true, fmt.Errorf("unterminated quoted key in %q", content)
		}
		rest := content[end:]
		if !strings.HasPrefix(rest, ":") {
			return "", "", false, nil
		}
		key, err := v.fmtr.ParseKey(content[:end])
		if err != nil {
			return "", "", true, err
		}
		return key, strings.TrimPrefix(strings.TrimPrefix(rest, ":"), " "), true, nil
	}
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case ':':
			if i == len(content)-1 {
				return content[:i], "", true, nil
			}
			if content[i+1] == ' ' {
				return content[:i], content[i+2:], true, nil
			}
		case ',', '[', ']', '{', '}', '"':
			// Bare keys never carry structural characters; the encoder quotes
			// them. A key separator further on means the key itself is broken,
			// anything else means this is not a key line at all.
			if i > 0 && (strings.Contains(content[i:], ": ") || strings.HasSuffix(content, ":")) {
				return "", "", true, fmt.Errorf("bare key in %q contains %q, expected a quoted key", content, content[i])
			}
			return "", "", false, nil
		}
	}
	return "", "", false, nil
}

// tryParseHeader parses `key[N]{c1,c2}:` and the keyless `[N]{c1,c2}:` form.
func (v *Validator) tryParseHeader(content string) (header, bool) {
	var hdr header
	rest := content
	if strings.HasPrefix(rest, `"`) {
		end := quotedTokenEnd(rest)
		if end < 0 {
			return hdr, false
		}
		key, err := v.fmtr.ParseKey(rest[:end])
		if err != nil {
			return hdr, false
		}
		hdr.key, hdr.hasKey = key, true
		rest = rest[end:]
	} else if open := strings.IndexByte(rest, '['); open > 0 {
		keyPart := rest[:open]
		if strings.ContainsAny(keyPart, ":{}]\",") {
			return hdr, false
		}
		hdr.key, hdr.hasKey = keyPart, true
		rest = rest[open:]
	}
	if !strings.HasPrefix(rest, "[") {
		return hdr, false
	}
	close := strings.IndexByte(rest, ']')
	if close < 0 {
		return hdr, false
	}
	n, err := strconv.Atoi(rest[1:close])
	if err != nil || n < 0 {
		return hdr, false
	}
	hdr.rows = n
	rest = rest[close+1:]
	if !strings.HasPrefix(rest, "{") || !strings.HasSuffix(rest, "}:") {
		return hdr, false
	}
	body := rest[1 : len(rest)-2]
	if body == "" {
		return hdr, false
	}
	hdr.columns = v.fmtr.SplitFields(body)
	for _, c := range hdr.columns {
		if c == "" {
			return hdr, false
		}
	}
	return hdr, true
}

// looksLikeHeader spots a broken header attempt so it is reported as a
// container-balance problem rather than silently treated as a key line. A
// leading quoted token is skipped first: quoted keys may legitimately carry
// bracket and brace text.
func looksLikeHeader(content string) bool {
	rest := content
	if strings.HasPrefix(rest, `"`) {
		end := quotedTokenEnd(rest)
		if end < 0 {
			return false
		}
		rest = rest[end:]
	}
	open := strings.IndexByte(rest, '[')
	return open >= 0 && strings.Contains(rest[open:], "]{") && strings.HasSuffix(rest, ":")
}

// quotedTokenEnd returns the index one past the closing quote of a quoted
// token starting at position 0, or -1 when it never closes.
func quotedTokenEnd(s string) int {
	escaped := false
	for i := 1; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case '"':
			return i + 1
		}
	}
	return -1
}

// balancedBrackets checks that every bracket and brace outside quoted
// regions closes within the same line.
func balancedBrackets(s string) bool {
	var stack []byte
	inQuotes := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuotes {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inQuotes = false
			}
			continue
		}
		switch c {
		case '"':
			inQuotes = true
		case '[', '{':
			stack = append(stack, c)
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0 && !inQuotes
}
