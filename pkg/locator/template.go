package locator

import (
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Template is a locator value with {placeholders}, e.g.
//
//	//android.widget.TextView[contains(@text,{name})]
//
// Substituted values are emitted as quoted XPath string literals.
type Template struct {
	raw string
	tpl *fasttemplate.Template
}

// MustTemplate compiles s and panics on malformed input.
func MustTemplate(s string) *Template {
	return &Template{raw: s, tpl: fasttemplate.New(s, "{", "}")}
}

// Expand substitutes values into the template.
func (t *Template) Expand(values map[string]string) string {
	return t.tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		return w.Write([]byte(Literal(values[tag])))
	})
}

// XPath expands the template into an XPath locator.
func (t *Template) XPath(values map[string]string) Locator {
	return XPath(t.Expand(values))
}

// String returns the unexpanded template.
func (t *Template) String() string {
	return t.raw
}

// Literal quotes s as an XPath 1.0 string literal.
func Literal(s string) string {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	default:
		parts := strings.Split(s, "'")
		quoted := make([]string, 0, 2*len(parts))
		for i, p := range parts {
			if i > 0 {
				quoted = append(quoted, `"'"`)
			}
			if p != "" {
				quoted = append(quoted, "'"+p+"'")
			}
		}
		return "concat(" + strings.Join(quoted, ", ") + ")"
	}
}
