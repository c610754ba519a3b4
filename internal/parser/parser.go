package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	stderrors "errors"

	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/models"
)

// Parse converts a single JSON document from reader into a models.Value.
//
// The decode runs over the token stream rather than into map[string]any:
// object key order comes from the token sequence itself, and json.Number
// tokens keep the exact numeric lexeme for re-emission. maxDepth bounds
// container nesting; values nested deeper fail with errors.ErrDepthExceeded
// before anything is returned.
func Parse(reader io.Reader, maxDepth int) (models.Value, error) {
	if maxDepth <= 0 {
		maxDepth = models.DefaultMaxDepth
	}
	dec := json.NewDecoder(reader)
	dec.UseNumber()

	v, err := parseValue(dec, 0, maxDepth)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return models.Value{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		var syntaxError *json.SyntaxError
		if stderrors.As(err, &syntaxError) {
			return models.Value{}, errors.NewParsingError(
				fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
				errors.ErrInvalidJSON,
			)
		}
		if stderrors.Is(err, errors.ErrDepthExceeded) {
			return models.Value{}, err
		}
		return models.Value{}, errors.NewParsingError("failed to decode JSON", err)
	}

	// Exactly one value is allowed at the root.
	if _, err := dec.Token(); err != io.EOF {
		return models.Value{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	}

	return v, nil
}

// parseValue reads one complete JSON value from the token stream.
func parseValue(dec *json.Decoder, depth, maxDepth int) (models.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return models.Value{}, err
	}
	return parseToken(dec, tok, depth, maxDepth)
}

func parseToken(dec *json.Decoder, tok json.Token, depth, maxDepth int) (models.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		if depth >= maxDepth {
			return models.Value{}, errors.NewParsingError(
				fmt.Sprintf("value is nested deeper than %d levels", maxDepth),
				errors.ErrDepthExceeded,
			)
		}
		switch t {
		case '{':
			return parseObject(dec, depth+1, maxDepth)
		case '[':
			return parseArray(dec, depth+1, maxDepth)
		default:
			return models.Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return models.NullValue(), nil
	case bool:
		return models.BoolValue(t), nil
	case string:
		return models.StringValue(t), nil
	case json.Number:
		// Float64 can overflow for huge literals; the lexeme is what gets
		// re-emitted, so the parsed form is best effort.
		f, _ := t.Float64()
		return models.NumberValue(string(t), f), nil
	default:
		return models.Value{}, fmt.Errorf("unexpected json token type: %T", t)
	}
}

func parseObject(dec *json.Decoder, depth, maxDepth int) (models.Value, error) {
	members := []models.Member{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return models.Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return models.Value{}, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		val, err := parseValue(dec, depth, maxDepth)
		if err != nil {
			return models.Value{}, err
		}
		// Duplicate keys: last value wins, original position kept, matching
		// the stdlib's map semantics while preserving order.
		if at, dup := index[key]; dup {
			members[at].Value = val
			continue
		}
		index[key] = len(members)
		members = append(members, models.Member{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return models.Value{}, err
	}
	return models.ObjectValue(members), nil
}

func parseArray(dec *json.Decoder, depth, maxDepth int) (models.Value, error) {
	items := []models.Value{}
	for dec.More() {
		v, err := parseValue(dec, depth, maxDepth)
		if err != nil {
			return models.Value{}, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return models.Value{}, err
	}
	return models.ArrayValue(items), nil
}

// ParseString parses JSON from a string
func ParseString(jsonString string, maxDepth int) (models.Value, error) {
	// An empty or whitespace-only string deserves a specific error rather
	// than the decoder's bare io.EOF.
	if strings.TrimSpace(jsonString) == "" {
		return models.Value{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString), maxDepth)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string, maxDepth int) (models.Value, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Value{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Value{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Value{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return models.Value{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.Value{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return Parse(file, maxDepth)
}
