// Package features derives the searchable tag string of a recipe from its
// ingredient and tag columns.
//
// Both columns arrive in loose shapes: a real list, a Python-style list
// literal such as "['a', 'b']", a comma separated string, or nothing at all.
// ParseList accepts all of them and never fails.
package features

import (
	"fmt"
	"strings"

	"github.com/WessleyAI/recipe-recommender/pkg/fn"
)

// cutset is trimmed from both ends of every token.
const cutset = " \t\r\n'\""

// ParseList normalizes a list-like value into its string tokens.
//
// Grammar: optional surrounding "[...]", comma separated items, each item
// trimmed of whitespace and quote characters, empty items dropped.
// A nil value or an empty string yields no tokens.
func ParseList(v any) []string {
	switch tv := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(tv))
		copy(out, tv)
		return out
	case []any:
		return fn.Map(tv, func(e any) string { return fmt.Sprint(e) })
	case string:
		return parseString(tv)
	default:
		return parseString(fmt.Sprint(tv))
	}
}

func parseString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	var out []string
	for _, piece := range strings.Split(s, ",") {
		if tok := strings.Trim(piece, cutset); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// TagString joins the normalized ingredients followed by the normalized tags
// with single spaces.
func TagString(ingredients, tags any) string {
	toks := append(ParseList(ingredients), ParseList(tags)...)
	return strings.Join(toks, " ")
}
