// Package widget converts between raw cell values and the values fields
// write onto catalog objects.
//
// Cleaning handles the usual spreadsheet noise: surrounding whitespace,
// currency symbols and thousands separators in numbers, and the many ways
// people spell a boolean. Empty cells clean to nil for typed widgets so the
// calling field can apply its default.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"product-catalog-importer/internal/domain"
)

// ErrInvalidValue is wrapped by every Clean failure.
var ErrInvalidValue = errors.New("widget: invalid value")

// Widget is the clean/render capability a field depends on.
type Widget interface {
	// Clean converts a raw cell value into the value written to the object.
	// row is the whole source row, for widgets that depend on other columns.
	Clean(value any, row map[string]any) (any, error)
	// Render converts an object value back into its cell representation.
	Render(value any, obj any) string
}

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func invalid(v any, kind string) error {
	return fmt.Errorf("%w: %v is not a valid %s", ErrInvalidValue, v, kind)
}

// Base passes values through unchanged.
type Base struct{}

func (Base) Clean(value any, row map[string]any) (any, error) { return value, nil }

func (Base) Render(value any, obj any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// Char cleans any scalar to a trimmed string.
type Char struct{}

func (Char) Clean(value any, row map[string]any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		return strings.TrimSpace(fmt.Sprint(v)), nil
	}
}

func (Char) Render(value any, obj any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// Integer cleans to int64. Thousands separators are accepted.
type Integer struct{}

func (Integer) Clean(value any, row map[string]any) (any, error) {
	if isEmpty(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return nil, invalid(v, "integer")
		}
		return int64(v), nil
	case json.Number:
		return cleanJSONInteger(v)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, invalid(strconv.Quote(v), "integer")
		}
		return n, nil
	default:
		return nil, invalid(value, "integer")
	}
}

// cleanJSONInteger keeps the full int64 range, which float64 decoding loses
// above 2^53. Integral values in other notations ("7.0", "1e3") are accepted.
func cleanJSONInteger(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() || d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
		return nil, invalid(n, "integer")
	}
	return d.IntPart(), nil
}

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

func (Integer) Render(value any, obj any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// Decimal cleans to decimal.Decimal. Currency symbols, thousands separators
// and accounting negatives ("(12.50)") are accepted.
type Decimal struct{}

func (Decimal) Clean(value any, row map[string]any) (any, error) {
	if isEmpty(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, invalid(v, "decimal")
		}
		return d, nil
	case string:
		d, ok := parseDecimal(v)
		if !ok {
			return nil, invalid(strconv.Quote(v), "decimal")
		}
		return d, nil
	default:
		return nil, invalid(value, "decimal")
	}
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}
	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func (Decimal) Render(value any, obj any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		return v.String()
	case *decimal.Decimal:
		if v == nil {
			return ""
		}
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Boolean accepts true/false, yes/no, t/f, y/n and 1/0 in any case and
// renders "1" or "0".
type Boolean struct{}

func (Boolean) Clean(value any, row map[string]any) (any, error) {
	if isEmpty(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case int64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case json.Number:
		switch v.String() {
		case "0", "1":
			return v.String() == "1", nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
	}
	return nil, invalid(value, "boolean")
}

func (Boolean) Render(value any, obj any) string {
	b, ok := value.(bool)
	if !ok {
		return ""
	}
	if b {
		return "1"
	}
	return "0"
}

// List splits a cell on Separator into trimmed, non-empty items.
// The zero value splits on commas.
type List struct {
	Separator string
}

func (l List) sep() string {
	if l.Separator == "" {
		return ","
	}
	return l.Separator
}

func (l List) Clean(value any, row map[string]any) (any, error) {
	switch v := value.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case json.Number:
		return []any{v.String()}, nil
	case string:
		out := []any{}
		for _, item := range strings.Split(v, l.sep()) {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	default:
		return nil, invalid(value, "list")
	}
}

func (l List) Render(value any, obj any) string {
	var items []string
	switch v := value.(type) {
	case nil:
		return ""
	case domain.RelatedSet:
		items = v.Values()
	case []string:
		items = v
	case []any:
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
	default:
		return fmt.Sprint(v)
	}
	return strings.Join(items, l.sep())
}

// New returns the widget registered under kind. An empty kind is Base.
func New(kind, separator string) (Widget, error) {
	switch strings.ToLower(kind) {
	case "", "base":
		return Base{}, nil
	case "char", "string":
		return Char{}, nil
	case "integer", "int":
		return Integer{}, nil
	case "decimal":
		return Decimal{}, nil
	case "boolean", "bool":
		return Boolean{}, nil
	case "list":
		return List{Separator: separator}, nil
	default:
		return nil, fmt.Errorf("widget: unknown kind %q", kind)
	}
}
