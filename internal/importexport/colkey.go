package importexport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"product-catalog-importer/internal/domain"
)

// Attribute names of price, attribute-option and translated fields encode
// their lookup keys. The grammars, with tokens separated by "__":
//
//	price:      ... <tax ratio> __ <currency>
//	price lvl:  ... <tax ratio> __ <...price_lvl...(<level id>)...> __ <any> __ <any> __ <currency>
//	attribute:  <any> __ <...(<group id>)...[notactive]...> [__ ...]
//	translated: <name>_<language>
//
// In the price level form the marker "price_lvl" may appear anywhere in the
// attribute; the level id is read from the fourth token from the end and the
// tax ratio from the fifth.

const (
	priceLevelMarker = "price_lvl"
	inactiveMarker   = "notactive"
)

func keyError(attribute, format string, args ...any) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidColumnKey, attribute, fmt.Sprintf(format, args...))
}

// parenthesized returns the text between the first "(" and the last ")".
func parenthesized(token string) (string, bool) {
	open := strings.Index(token, "(")
	closing := strings.LastIndex(token, ")")
	if open < 0 || closing <= open {
		return "", false
	}
	return token[open+1 : closing], true
}

func parseID(attribute, token, what string) (int64, error) {
	inner, ok := parenthesized(token)
	if !ok {
		return 0, keyError(attribute, "%s token %q has no (<id>)", what, token)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(inner), 10, 64)
	if err != nil {
		return 0, keyError(attribute, "%s id %q is not an integer", what, inner)
	}
	return id, nil
}

// ParsePriceKey decodes the currency, tax ratio and optional price level of
// a price column.
func ParsePriceKey(attribute string) (domain.PriceKey, error) {
	tokens := splitPath(attribute)
	n := len(tokens)

	var key domain.PriceKey
	taxToken := ""
	if strings.Contains(attribute, priceLevelMarker) {
		if n < 5 {
			return key, keyError(attribute, "price level key needs at least 5 tokens, got %d", n)
		}
		level, err := parseID(attribute, tokens[n-4], "price level")
		if err != nil {
			return key, err
		}
		key.PriceLevelID = &level
		taxToken = tokens[n-5]
	} else {
		if n < 2 {
			return key, keyError(attribute, "price key needs at least 2 tokens, got %d", n)
		}
		taxToken = tokens[n-2]
	}

	key.Currency = strings.TrimSpace(tokens[n-1])
	if key.Currency == "" {
		return key, keyError(attribute, "missing currency")
	}
	tax, err := decimal.NewFromString(strings.TrimSpace(taxToken))
	if err != nil {
		return key, keyError(attribute, "tax ratio %q is not a number", taxToken)
	}
	key.TaxRatio = tax
	return key, nil
}

// AttributeKey addresses an attribute option group.
type AttributeKey struct {
	GroupID int64
	Active  bool
}

func ParseAttributeKey(attribute string) (AttributeKey, error) {
	tokens := splitPath(attribute)
	if len(tokens) < 2 {
		return AttributeKey{}, keyError(attribute, "attribute key needs at least 2 tokens")
	}
	id, err := parseID(attribute, tokens[1], "option group")
	if err != nil {
		return AttributeKey{}, err
	}
	return AttributeKey{GroupID: id, Active: !strings.Contains(tokens[1], inactiveMarker)}, nil
}

// LanguageKey is a translated attribute name split from its language code.
type LanguageKey struct {
	Name     string
	Language string
}

func ParseLanguageKey(attribute string) (LanguageKey, error) {
	i := strings.LastIndex(attribute, "_")
	if i <= 0 || i == len(attribute)-1 {
		return LanguageKey{}, keyError(attribute, "expected <name>_<language>")
	}
	return LanguageKey{Name: attribute[:i], Language: attribute[i+1:]}, nil
}
