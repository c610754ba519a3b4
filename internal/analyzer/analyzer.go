package analyzer

import (
	"github.com/mcncl/gotoon/internal/models"
)

// Layout is the rendering strategy chosen for an array.
type Layout int

const (
	// LayoutEmpty renders as the literal `[]`.
	LayoutEmpty Layout = iota
	// LayoutInline renders as `[a, b, c]` on one line.
	LayoutInline
	// LayoutTable renders as a `key[N]{cols}:` header plus one row per element.
	LayoutTable
	// LayoutBlock is the generic fallback: one nested block per element,
	// each behind a list marker.
	LayoutBlock
)

// String returns the layout name for debug output.
func (l Layout) String() string {
	switch l {
	case LayoutEmpty:
		return "empty"
	case LayoutInline:
		return "inline"
	case LayoutTable:
		return "table"
	case LayoutBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Analyzer decides how arrays should be rendered. It inspects structure
// only; it never looks at the text the encoder will eventually produce.
type Analyzer struct{}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Classify picks the layout for an array's items.
//
// Inline requires every element to be a scalar of the same kind. Table
// requires every element to be an object carrying the same key set as the
// first element, with scalar-only values whose kinds agree per column
// (null matches only null). Everything else falls back to a block list.
func (a *Analyzer) Classify(items []models.Value) Layout {
	if len(items) == 0 {
		return LayoutEmpty
	}
	if allScalars(items) {
		first := items[0].Kind
		for _, it := range items[1:] {
			if it.Kind != first {
				return LayoutBlock
			}
		}
		return LayoutInline
	}
	if a.isTabular(items) {
		return LayoutTable
	}
	return LayoutBlock
}

// TableShapeOf derives the table description for an array the analyzer
// judged tabular. Column order is the key order of the first element; each
// row lists that element's cell values in column order. The second return
// is false when the array is not tabular.
func (a *Analyzer) TableShapeOf(items []models.Value) (models.TableShape, bool) {
	if a.Classify(items) != LayoutTable {
		return models.TableShape{}, false
	}
	columns := items[0].Keys()
	rows := make([][]models.Value, len(items))
	for i, it := range items {
		row := make([]models.Value, len(columns))
		for j, col := range columns {
			cell, _ := it.Lookup(col)
			row[j] = cell
		}
		rows[i] = row
	}
	return models.TableShape{Columns: columns, Rows: rows}, true
}

func (a *Analyzer) isTabular(items []models.Value) bool {
	first := items[0]
	if first.Kind != models.Object || len(first.Members) == 0 {
		return false
	}
	columns := first.Keys()
	colSet := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		colSet[c] = struct{}{}
	}
	// Cell kinds of the first row anchor the per-column type check.
	kinds := make(map[string]models.Kind, len(columns))
	for _, m := range first.Members {
		if !m.Value.IsScalar() {
			return false
		}
		kinds[m.Key] = m.Value.Kind
	}
	for _, it := range items[1:] {
		if it.Kind != models.Object || len(it.Members) != len(columns) {
			return false
		}
		for _, m := range it.Members {
			if _, ok := colSet[m.Key]; !ok {
				return false
			}
			if !m.Value.IsScalar() {
				return false
			}
			if m.Value.Kind != kinds[m.Key] {
				return false
			}
		}
	}
	return true
}

func allScalars(items []models.Value) bool {
	for _, it := range items {
		if !it.IsScalar() {
			return false
		}
	}
	return true
}
