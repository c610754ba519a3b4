package generator

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mcncl/gotoon/internal/analyzer"
	apperrors "github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/formatter"
	"github.com/mcncl/gotoon/internal/models"
	"github.com/mcncl/gotoon/internal/validator"
)

// indentUnit is fixed at two spaces per level. Not configurable.
const indentUnit = "  "

// Generator renders a models.Value tree into TOON text.
//
// Encoding is deterministic: the same tree always produces byte-identical
// output. A Generator holds no per-call state, so one instance may serve
// concurrent conversions.
type Generator struct {
	// MaxDepth is the nesting ceiling; exceeding it fails with
	// errors.ErrDepthExceeded before any output is produced.
	MaxDepth int
	// RenameKey, when set, rewrites object keys and table column names
	// before rendering (the key_casing config option). Renaming that
	// collapses two keys into one will fail self-validation.
	RenameKey func(string) string

	fmtr *formatter.Formatter
	an   *analyzer.Analyzer
}

// NewGenerator creates a Generator with default settings.
func NewGenerator() *Generator {
	return &Generator{
		MaxDepth: models.DefaultMaxDepth,
		fmtr:     formatter.NewFormatter(),
		an:       analyzer.NewAnalyzer(),
	}
}

// Encode renders v as a TOON document. The result carries no trailing
// newline; callers appending to files usually add one.
func (g *Generator) Encode(v models.Value) (string, error) {
	var lines []string
	if err := g.encodeRoot(v, &lines); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// EncodeVerified encodes v and re-validates the output. A validation failure
// here means an encoder defect, never bad user data; it is reported on
// stderr and returned as an encode-stage error wrapping ErrEncodingInvariant.
func (g *Generator) EncodeVerified(v models.Value) (string, error) {
	toon, err := g.Encode(v)
	if err != nil {
		return "", err
	}
	ok, diags := validator.NewValidator().Validate(toon)
	if !ok {
		fmt.Fprintf(os.Stderr, "gotoon: ENCODER DEFECT: generated TOON failed self-validation with %d diagnostic(s):\n", len(diags))
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "  %s\n", d)
		}
		return "", apperrors.NewEncodeError(
			fmt.Sprintf("output failed self-validation: %s", diags[0]),
			apperrors.ErrEncodingInvariant,
		)
	}
	return toon, nil
}

func (g *Generator) encodeRoot(v models.Value, lines *[]string) error {
	switch v.Kind {
	case models.Object:
		if len(v.Members) == 0 {
			*lines = append(*lines, "{}")
			return nil
		}
		return g.encodeObject(v.Members, 0, lines)
	case models.Array:
		return g.encodeRootArray(v.Items, lines)
	default:
		*lines = append(*lines, g.fmtr.FormatScalar(v, formatter.ContextLine))
		return nil
	}
}

// encodeRootArray handles a keyless array at the top of the document.
func (g *Generator) encodeRootArray(items []models.Value, lines *[]string) error {
	switch g.an.Classify(items) {
	case analyzer.LayoutEmpty:
		*lines = append(*lines, "[]")
	case analyzer.LayoutInline:
		*lines = append(*lines, g.inlineArray(items))
	case analyzer.LayoutTable:
		shape, _ := g.an.TableShapeOf(items)
		*lines = append(*lines, g.tableHeader("", shape))
		g.tableRows(shape, 1, lines)
	case analyzer.LayoutBlock:
		return g.encodeList(items, 0, lines)
	}
	return nil
}

func (g *Generator) encodeObject(members []models.Member, depth int, lines *[]string) error {
	if depth > g.MaxDepth {
		return apperrors.NewEncodeError("value is nested too deeply", apperrors.ErrDepthExceeded)
	}
	indent := strings.Repeat(indentUnit, depth)
	for _, m := range members {
		key := g.formatKey(m.Key)
		v := m.Value
		switch {
		case v.IsScalar():
			*lines = append(*lines, indent+key+": "+g.fmtr.FormatScalar(v, formatter.ContextLine))
		case v.Kind == models.Object:
			if len(v.Members) == 0 {
				*lines = append(*lines, indent+key+": {}")
				continue
			}
			*lines = append(*lines, indent+key+":")
			if err := g.encodeObject(v.Members, depth+1, lines); err != nil {
				return err
			}
		case v.Kind == models.Array:
			switch g.an.Classify(v.Items) {
			case analyzer.LayoutEmpty:
				*lines = append(*lines, indent+key+": []")
			case analyzer.LayoutInline:
				*lines = append(*lines, indent+key+": "+g.inlineArray(v.Items))
			case analyzer.LayoutTable:
				shape, _ := g.an.TableShapeOf(v.Items)
				*lines = append(*lines, indent+g.tableHeader(key, shape))
				g.tableRows(shape, depth+1, lines)
			case analyzer.LayoutBlock:
				*lines = append(*lines, indent+key+":")
				if err := g.encodeList(v.Items, depth+1, lines); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// encodeList renders the generic block-list fallback: one `- ` entry per
// element, containers opening their own nested block.
func (g *Generator) encodeList(items []models.Value, depth int, lines *[]string) error {
	if depth > g.MaxDepth {
		return apperrors.NewEncodeError("value is nested too deeply", apperrors.ErrDepthExceeded)
	}
	indent := strings.Repeat(indentUnit, depth)
	for _, it := range items {
		switch {
		case it.IsScalar():
			*lines = append(*lines, indent+"- "+g.fmtr.FormatScalar(it, formatter.ContextLine))
		case it.Kind == models.Object:
			if len(it.Members) == 0 {
				*lines = append(*lines, indent+"- {}")
				continue
			}
			*lines = append(*lines, indent+"-")
			if err := g.encodeObject(it.Members, depth+1, lines); err != nil {
				return err
			}
		case it.Kind == models.Array:
			switch g.an.Classify(it.Items) {
			case analyzer.LayoutEmpty:
				*lines = append(*lines, indent+"- []")
			case analyzer.LayoutInline:
				*lines = append(*lines, indent+"- "+g.inlineArray(it.Items))
			case analyzer.LayoutTable:
				shape, _ := g.an.TableShapeOf(it.Items)
				*lines = append(*lines, indent+"-")
				*lines = append(*lines, indent+indentUnit+g.tableHeader("", shape))
				g.tableRows(shape, depth+2, lines)
			case analyzer.LayoutBlock:
				*lines = append(*lines, indent+"-")
				if err := g.encodeList(it.Items, depth+1, lines); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (g *Generator) inlineArray(items []models.Value) string {
	tokens := make([]string, len(items))
	for i, it := range items {
		tokens[i] = g.fmtr.FormatScalar(it, formatter.ContextInline)
	}
	return "[" + strings.Join(tokens, ", ") + "]"
}

// tableHeader renders `key[N]{c1,c2}:`, or the keyless `[N]{c1,c2}:` form
// for root and list-element tables. N is the exact row count; the validator
// cross-checks it.
func (g *Generator) tableHeader(key string, shape models.TableShape) string {
	cols := make([]string, len(shape.Columns))
	for i, c := range shape.Columns {
		cols[i] = g.formatKey(c)
	}
	return key + "[" + strconv.Itoa(len(shape.Rows)) + "]{" + strings.Join(cols, ",") + "}:"
}

func (g *Generator) tableRows(shape models.TableShape, depth int, lines *[]string) {
	indent := strings.Repeat(indentUnit, depth)
	for _, row := range shape.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = g.fmtr.FormatScalar(cell, formatter.ContextInline)
		}
		*lines = append(*lines, indent+strings.Join(cells, ","))
	}
}

func (g *Generator) formatKey(key string) string {
	if g.RenameKey != nil {
		key = g.RenameKey(key)
	}
	return g.fmtr.FormatKey(key)
}
