// Package decoder reconstructs a Value tree from TOON text. It is the exact
// inverse of the generator for generator-produced documents and exists so the
// round-trip property can be checked end to end.
package decoder

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/formatter"
	"github.com/mcncl/gotoon/internal/models"
)

// Decoder parses TOON text back into a models.Value.
type Decoder struct {
	fmtr *formatter.Formatter
}

// NewDecoder creates a new Decoder instance.
func NewDecoder() *Decoder {
	return &Decoder{fmtr: formatter.NewFormatter()}
}

type srcLine struct {
	num     int
	level   int
	content string
}

type parseState struct {
	d     *Decoder
	lines []srcLine
	pos   int
}

// Decode parses a TOON document into a Value tree, preserving key order and
// numeric lexemes.
func (d *Decoder) Decode(toon string) (models.Value, error) {
	var lines []srcLine
	for i, raw := range strings.Split(toon, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " "))
		if indent%2 != 0 {
			return models.Value{}, apperrors.NewDecodeError(
				fmt.Sprintf("line %d: indentation of %d spaces is not a multiple of 2", i+1, indent),
				apperrors.ErrMalformedTOON,
			)
		}
		lines = append(lines, srcLine{num: i + 1, level: indent / 2, content: raw[indent:]})
	}
	if len(lines) == 0 {
		return models.Value{}, apperrors.NewDecodeError("document is empty", apperrors.ErrMalformedTOON)
	}
	p := &parseState{d: d, lines: lines}
	v, err := p.root()
	if err != nil {
		return models.Value{}, err
	}
	if p.pos < len(p.lines) {
		return models.Value{}, p.errAt(p.lines[p.pos], "trailing content after document root")
	}
	return v, nil
}

func (p *parseState) errAt(ln srcLine, msg string) error {
	return apperrors.NewDecodeError(fmt.Sprintf("line %d: %s", ln.num, msg), apperrors.ErrMalformedTOON)
}

func (p *parseState) peek() (srcLine, bool) {
	if p.pos >= len(p.lines) {
		return srcLine{}, false
	}
	return p.lines[p.pos], true
}

func (p *parseState) root() (models.Value, error) {
	first := p.lines[0]
	if first.level != 0 {
		return models.Value{}, p.errAt(first, "document root must start at indent level 0")
	}
	switch {
	case isListItem(first.content):
		items, err := p.list(0)
		if err != nil {
			return models.Value{}, err
		}
		return models.ArrayValue(items), nil
	default:
		if hdr, ok := p.d.parseHeader(first.content); ok && !hdr.hasKey {
			p.pos++
			items, err := p.tableRows(hdr, 1)
			if err != nil {
				return models.Value{}, err
			}
			return models.ArrayValue(items), nil
		}
		if _, _, ok := p.d.splitKeyLine(first.content); ok {
			members, err := p.object(0)
			if err != nil {
				return models.Value{}, err
			}
			return models.ObjectValue(members), nil
		}
		if hdr, ok := p.d.parseHeader(first.content); ok && hdr.hasKey {
			members, err := p.object(0)
			if err != nil {
				return models.Value{}, err
			}
			return models.ObjectValue(members), nil
		}
		// Single keyless fragment: scalar, inline array, or empty container.
		p.pos++
		return p.d.parseValueToken(first)
	}
}

// object parses consecutive key lines (and keyed table headers) at level.
func (p *parseState) object(level int) ([]models.Member, error) {
	members := []models.Member{}
	for {
		ln, ok := p.peek()
		if !ok || ln.level != level || isListItem(ln.content) {
			return members, nil
		}
		if hdr, ok := p.d.parseHeader(ln.content); ok {
			if !hdr.hasKey {
				return members, nil
			}
			p.pos++
			items, err := p.tableRows(hdr, level+1)
			if err != nil {
				return nil, err
			}
			members = append(members, models.Member{Key: hdr.key, Value: models.ArrayValue(items)})
			continue
		}
		key, value, ok := p.d.splitKeyLine(ln.content)
		if !ok {
			return members, nil
		}
		keyName, err := p.d.fmtr.ParseKey(key)
		if err != nil {
			return nil, p.errAt(ln, err.Error())
		}
		p.pos++
		if value == "" {
			child, err := p.block(ln, level+1)
			if err != nil {
				return nil, err
			}
			members = append(members, models.Member{Key: keyName, Value: child})
			continue
		}
		v, err := p.d.parseValueToken(srcLine{num: ln.num, content: value})
		if err != nil {
			return nil, err
		}
		members = append(members, models.Member{Key: keyName, Value: v})
	}
}

// block parses the nested structure opened by a bare `key:` line or a bare
// `-` marker: either an object block or a block list one level deeper.
func (p *parseState) block(opener srcLine, level int) (models.Value, error) {
	ln, ok := p.peek()
	if !ok || ln.level < level {
		return models.Value{}, p.errAt(opener, "block opener has no indented content")
	}
	if ln.level > level {
		return models.Value{}, p.errAt(ln, fmt.Sprintf("indent jumps past level %d", level))
	}
	if isListItem(ln.content) {
		items, err := p.list(level)
		if err != nil {
			return models.Value{}, err
		}
		return models.ArrayValue(items), nil
	}
	if hdr, ok := p.d.parseHeader(ln.content); ok && !hdr.hasKey {
		p.pos++
		items, err := p.tableRows(hdr, level+1)
		if err != nil {
			return models.Value{}, err
		}
		return models.ArrayValue(items), nil
	}
	members, err := p.object(level)
	if err != nil {
		return models.Value{}, err
	}
	if len(members) == 0 {
		return models.Value{}, p.errAt(ln, "expected object members, list items, or a table header")
	}
	return models.ObjectValue(members), nil
}

// list parses consecutive `- ` items at level.
func (p *parseState) list(level int) ([]models.Value, error) {
	items := []models.Value{}
	for {
		ln, ok := p.peek()
		if !ok || ln.level != level || !isListItem(ln.content) {
			return items, nil
		}
		p.pos++
		if ln.content == "-" {
			child, err := p.block(ln, level+1)
			if err != nil {
				return nil, err
			}
			items = append(items, child)
			continue
		}
		v, err := p.d.parseValueToken(srcLine{num: ln.num, content: strings.TrimPrefix(ln.content, "- ")})
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}

// tableRows consumes exactly hdr.rows rows at level and rebuilds one object
// per row, keys in column order.
func (p *parseState) tableRows(hdr tableHeader, level int) ([]models.Value, error) {
	items := make([]models.Value, 0, hdr.rows)
	for i := 0; i < hdr.rows; i++ {
		ln, ok := p.peek()
		if !ok || ln.level != level {
			return nil, apperrors.NewDecodeError(
				fmt.Sprintf("table declared with %d row(s) ends after %d", hdr.rows, i),
				apperrors.ErrMalformedTOON,
			)
		}
		p.pos++
		fields := p.d.fmtr.SplitFields(ln.content)
		if len(fields) != len(hdr.columns) {
			return nil, p.errAt(ln, fmt.Sprintf("row has %d field(s), header declares %d columns", len(fields), len(hdr.columns)))
		}
		members := make([]models.Member, len(fields))
		for j, fld := range fields {
			cell, err := p.d.fmtr.ParseScalar(fld)
			if err != nil {
				return nil, p.errAt(ln, err.Error())
			}
			members[j] = models.Member{Key: hdr.columns[j], Value: cell}
		}
		items = append(items, models.ObjectValue(members))
	}
	return items, nil
}

// parseValueToken interprets the token after `key: ` or a list marker.
func (d *Decoder) parseValueToken(ln srcLine) (models.Value, error) {
	content := ln.content
	switch {
	case content == "{}":
		return models.ObjectValue([]models.Member{}), nil
	case content == "[]":
		return models.ArrayValue([]models.Value{}), nil
	case strings.HasPrefix(content, "["):
		if !strings.HasSuffix(content, "]") {
			return models.Value{}, apperrors.NewDecodeError(
				fmt.Sprintf("line %d: inline array does not close: %q", ln.num, content),
				apperrors.ErrMalformedTOON,
			)
		}
		inner := content[1 : len(content)-1]
		if strings.TrimSpace(inner) == "" {
			return models.ArrayValue([]models.Value{}), nil
		}
		fields := d.fmtr.SplitFields(inner)
		items := make([]models.Value, len(fields))
		for i, fld := range fields {
			v, err := d.fmtr.ParseScalar(fld)
			if err != nil {
				return models.Value{}, apperrors.NewDecodeError(
					fmt.Sprintf("line %d: %v", ln.num, err), apperrors.ErrMalformedTOON)
			}
			items[i] = v
		}
		return models.ArrayValue(items), nil
	default:
		v, err := d.fmtr.ParseScalar(content)
		if err != nil {
			return models.Value{}, apperrors.NewDecodeError(
				fmt.Sprintf("line %d: %v", ln.num, err), apperrors.ErrMalformedTOON)
		}
		return v, nil
	}
}

type tableHeader struct {
	key     string
	hasKey  bool
	rows    int
	columns []string
}

// parseHeader recognizes `key[N]{c1,c2}:` and the keyless `[N]{c1,c2}:`.
func (d *Decoder) parseHeader(content string) (tableHeader, bool) {
	var hdr tableHeader
	rest := content
	if strings.HasPrefix(rest, `"`) {
		end := quotedTokenEnd(rest)
		if end < 0 || end >= len(rest) || rest[end] != '[' {
			return hdr, false
		}
		key, err := d.fmtr.ParseKey(rest[:end])
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
	for _, c := range d.fmtr.SplitFields(body) {
		name, err := d.fmtr.ParseKey(c)
		if err != nil {
			return hdr, false
		}
		hdr.columns = append(hdr.columns, name)
	}
	return hdr, true
}

// splitKeyLine splits `key: value` / `key:` content; ok is false when the
// line carries no key separator outside quoted or bracketed text.
func (d *Decoder) splitKeyLine(content string) (key, value string, ok bool) {
	if strings.HasPrefix(content, `"`) {
		end := quotedTokenEnd(content)
		if end < 0 {
			return "", "", false
		}
		rest := content[end:]
		if !strings.HasPrefix(rest, ":") {
			return "", "", false
		}
		return content[:end], strings.TrimPrefix(strings.TrimPrefix(rest, ":"), " "), true
	}
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case ':':
			if i == len(content)-1 {
				return content[:i], "", true
			}
			if content[i+1] == ' ' {
				return content[:i], content[i+2:], true
			}
		case ',', '[', ']', '{', '}', '"':
			// Bare keys never carry structural characters; a line whose first
			// colon hides inside an inline array or a quoted element is not a
			// key line.
			return "", "", false
		}
	}
	return "", "", false
}

func isListItem(content string) bool {
	return content == "-" || strings.HasPrefix(content, "- ")
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
