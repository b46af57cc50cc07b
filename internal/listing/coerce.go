package listing

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// currencyTokens are stripped from price strings before number parsing.
var currencyTokens = []string{"₺", "TL", "TRY", "$", "€", "USD", "EUR"}

func stringField(obj map[string]any, key string) *string {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

// rawField returns the decoded value as found, nil only when the key is absent or null.
func rawField(obj map[string]any, key string) any {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	return v
}

// numberField returns JSON numbers unchanged and numeric strings as float64.
// Strings that do not read as a number are kept verbatim.
func numberField(obj map[string]any, key string) any {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	s, isString := v.(string)
	if !isString {
		return v
	}
	if f, ok := ParseNumber(s); ok {
		return f
	}
	return s
}

// ParseNumber reads prices and quantities written as "129.90", "12,50",
// "1.299,90", "1,299.90" or "₺129,90". When both separators appear the last one
// is the decimal mark; a lone separator followed by exactly three digits groups
// thousands.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimal, group := ".", ","
		if lastComma > lastDot {
			decimal, group = ",", "."
		}
		s = strings.ReplaceAll(s, group, "")
		s = strings.Replace(s, decimal, ".", 1)
	case lastComma >= 0:
		s = normalizeSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSeparator(s, ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func normalizeSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	head := strings.TrimLeft(s[:idx], "+-")
	if len(s)-idx-1 == 3 && head != "" && head != "0" {
		return strings.Replace(s, sep, "", 1)
	}
	return strings.Replace(s, sep, ".", 1)
}
