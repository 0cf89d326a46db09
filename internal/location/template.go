// Package location renders geocoding query strings from row data using
// {column} placeholder templates.
package location

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Template is a parsed location pattern: literal text interleaved with
// {column} placeholders. Placeholders whose column is absent or null render
// as the empty string. Unmatched braces are treated as literal text.
type Template struct {
	raw      string
	segments []segment
}

type segment struct {
	literal string // used when column is ""
	column  string
}

// Parse parses a location pattern. An empty or blank pattern is an error;
// anything else parses successfully.
func Parse(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, eris.New("location: empty template")
	}

	t := &Template{raw: raw}
	var literal strings.Builder

	for i := 0; i < len(raw); {
		open := strings.IndexByte(raw[i:], '{')
		if open < 0 {
			literal.WriteString(raw[i:])
			break
		}
		open += i

		literal.WriteString(raw[i:open])

		name, next, ok := scanPlaceholder(raw, open)
		if !ok {
			// Unmatched or empty braces stay literal.
			literal.WriteByte('{')
			i = open + 1
			continue
		}

		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{literal: literal.String()})
			literal.Reset()
		}
		t.segments = append(t.segments, segment{column: name})
		i = next
	}

	if literal.Len() > 0 {
		t.segments = append(t.segments, segment{literal: literal.String()})
	}

	return t, nil
}

// scanPlaceholder reads a {name} placeholder starting at the opening brace.
// Returns the column name and the index just past the closing brace.
func scanPlaceholder(raw string, open int) (string, int, bool) {
	rest := raw[open+1:]
	close := strings.IndexByte(rest, '}')
	if close < 0 {
		return "", 0, false
	}
	name := rest[:close]
	if name == "" || strings.ContainsRune(name, '{') {
		return "", 0, false
	}
	return name, open + 1 + close + 1, true
}

// Render substitutes row values into the template.
func (t *Template) Render(row map[string]any) string {
	var out strings.Builder
	for _, seg := range t.segments {
		if seg.column == "" {
			out.WriteString(seg.literal)
			continue
		}
		out.WriteString(formatValue(row[seg.column]))
	}
	return out.String()
}

// Columns returns the distinct placeholder names in template order.
func (t *Template) Columns() []string {
	var cols []string
	seen := make(map[string]bool)
	for _, seg := range t.segments {
		if seg.column == "" || seen[seg.column] {
			continue
		}
		seen[seg.column] = true
		cols = append(cols, seg.column)
	}
	return cols
}

// String returns the original pattern.
func (t *Template) String() string { return t.raw }

// formatValue renders a scalar column value as query text. Drivers hand back
// a mix of strings, byte slices, and numeric types depending on the backend.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
