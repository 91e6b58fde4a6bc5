package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsetRelation is returned by Attr when a relation cannot be followed
// because the owning object has not been given an identity yet.
var ErrUnsetRelation = errors.New("domain: relation requires a saved object")

// ErrUnknownAttribute is returned for attribute names an entity does not expose.
var ErrUnknownAttribute = errors.New("domain: unknown attribute")

// Attributed is anything whose attributes can be read and written by name.
// Path traversal in the import layer walks through Attributed values.
type Attributed interface {
	Attr(name string) (any, error)
	SetAttr(name string, value any) error
}

// ObjectRef identifies a persisted object independent of its Go type.
// Price and image facts point at their owner through an ObjectRef.
type ObjectRef struct {
	ContentType string `json:"content_type"`
	ObjectID    int64  `json:"object_id"`
}

// Saved reports whether the referenced object has an identity.
func (r ObjectRef) Saved() bool { return r.ObjectID != 0 }

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s:%d", r.ContentType, r.ObjectID)
}

// Entity is a top-level importable object.
type Entity interface {
	Attributed
	Ref() ObjectRef
	// DisplayName is the human readable label used in error messages.
	DisplayName() string
}

// RelatedSet is a multi-valued relation. It is never invoked as a computed
// attribute and is written with Replace.
type RelatedSet interface {
	Replace(values []any) error
	Values() []string
}

// FieldMeta describes storage constraints of a translated attribute.
type FieldMeta struct {
	Blank      bool // empty string allowed
	Null       bool // NULL allowed
	IsRelation bool
}

// Satellite is a per-language companion record holding translated values.
type Satellite interface {
	Attributed
	Language() string
	FieldMeta(name string) (FieldMeta, bool)
}

// Localized is implemented by entities that keep translated attributes in
// satellite records, one per language.
type Localized interface {
	// Translation returns the satellite for lang. When create is true a
	// missing satellite is created and attached to the entity.
	Translation(lang string, create bool) (Satellite, bool)
}

func unknownAttr(owner, name string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, owner, name)
}

func asString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case int, int32, int64, float64, bool:
		return fmt.Sprint(x), nil
	default:
		return "", fmt.Errorf("domain: cannot use %T as string", v)
	}
}

func asStringPtr(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("domain: %s is not an integer", x)
		}
		return n, nil
	case decimal.Decimal:
		return x.IntPart(), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("domain: %q is not an integer", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("domain: cannot use %T as integer", v)
	}
}

func asInt64Ptr(v any) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func asBool(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("domain: %q is not a boolean", x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("domain: cannot use %T as boolean", v)
	}
}
