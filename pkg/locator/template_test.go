package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplate_Expand(t *testing.T) {
	tpl := MustTemplate("//android.widget.TextView[contains(@text,{name})]")

	assert.Equal(t, "//android.widget.TextView[contains(@text,'Jane')]", tpl.Expand(map[string]string{"name": "Jane"}))
	assert.Equal(t, `//android.widget.TextView[contains(@text,"O'Brien")]`, tpl.Expand(map[string]string{"name": "O'Brien"}))
	assert.Equal(t, XPath("//android.widget.TextView[contains(@text,'')]"), tpl.XPath(nil))
	assert.Equal(t, "//android.widget.TextView[contains(@text,{name})]", tpl.String())
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane", "'Jane'"},
		{"", "''"},
		{"O'Brien", `"O'Brien"`},
		{`say "hi" it's`, `concat('say "hi" it', "'", 's')`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Literal(tt.in), tt.in)
	}
}
