// Package scrape extracts form state and embedded widget parameters from
// identity-provider HTML. It is the only place that touches markup; the
// stages consume plain maps and strings.
package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FormValues returns the name→value mapping of the input elements found
// under selector. If the same name appears more than once, the first
// occurrence wins. An empty result (selector missing or no named inputs)
// is an error: the caller always expects at least one hidden token.
func FormValues(html, selector string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	values := map[string]string{}
	doc.Find(selector).Find("input").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, dup := values[name]; dup {
			return
		}
		// value ausente se conserva como vacío (campos tipo submit)
		val, _ := s.Attr("value")
		values[name] = val
	})

	if len(values) == 0 {
		return nil, fmt.Errorf("no inputs found under %q", selector)
	}
	return values, nil
}

// Require checks that every key is present and non-empty in values.
func Require(values map[string]string, keys ...string) error {
	for _, k := range keys {
		if values[k] == "" {
			return fmt.Errorf("missing form field %q", k)
		}
	}
	return nil
}

// InitializerArg locates the inline script call funcName(...) and returns
// its single object-literal argument with single quotes normalized to
// double quotes, ready for JSON decoding. The widget init embeds a
// JSON-like object with single-quoted keys; anything short of a balanced
// object literal is an error, never a guess.
func InitializerArg(html, funcName string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var arg string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, funcName+"(")
		if idx < 0 {
			return true
		}
		span, ok := objectSpan(text[idx+len(funcName)+1:])
		if !ok {
			return true
		}
		arg = span
		return false
	})

	if arg == "" {
		return "", fmt.Errorf("initializer call %q not found", funcName)
	}
	return strings.ReplaceAll(arg, "'", `"`), nil
}

// objectSpan isolates the first balanced {...} literal in s.
func objectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
