package importexport

import (
	"errors"
	"fmt"
	"strings"

	"product-catalog-importer/internal/domain"
)

// PathSeparator joins the segments of a nested attribute path.
const PathSeparator = "__"

func splitPath(attribute string) []string {
	return strings.Split(attribute, PathSeparator)
}

// resolvePath reads segments one after another starting at obj. A nil value
// or an unset relation at any step yields nil. A computed attribute at the
// end of the path is invoked; related sets are returned as they are.
func resolvePath(obj domain.Attributed, segments []string) (any, error) {
	var value any = obj
	for _, seg := range segments {
		a, ok := value.(domain.Attributed)
		if !ok {
			return nil, fmt.Errorf("%w: %T has no attribute %q", ErrUnsupportedTarget, value, seg)
		}
		v, err := a.Attr(seg)
		if errors.Is(err, domain.ErrUnsetRelation) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		value = v
	}
	if fn, ok := value.(func() any); ok {
		return fn(), nil
	}
	return value, nil
}

// owner walks all but the last segment and returns the object that holds
// the last one.
func owner(obj domain.Attributed, segments []string) (domain.Attributed, error) {
	current := obj
	for _, seg := range segments[:len(segments)-1] {
		v, err := current.Attr(seg)
		if err != nil {
			return nil, err
		}
		next, ok := v.(domain.Attributed)
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: cannot write through %q", ErrUnsupportedTarget, seg)
		}
		current = next
	}
	return current, nil
}

// withLanguage runs fn against the record holding obj's values in lang: the
// language satellite of a localized entity, obj itself otherwise. sat is nil
// in the second case. When the satellite is missing and create is false, fn
// is not run and withLanguage reports false.
func withLanguage(obj domain.Entity, lang string, create bool, fn func(target domain.Attributed, sat domain.Satellite) error) (bool, error) {
	loc, ok := obj.(domain.Localized)
	if !ok {
		return true, fn(obj, nil)
	}
	sat, found := loc.Translation(lang, create)
	if !found {
		return false, nil
	}
	return true, fn(sat, sat)
}
