package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screenNodes() []*node {
	return []*node{
		{key: "first", class: "android.widget.EditText", text: "First name", hint: "First name", clickable: true, editable: true},
		{key: "typed", class: "android.widget.EditText", text: "Jane", hint: "First name", clickable: true, editable: true},
		{key: "save", class: "android.widget.Button", text: "Save", clickable: true},
		{key: "fab", class: "android.widget.ImageButton", desc: "Create contact", clickable: true},
		{key: "title", class: "android.widget.TextView", text: "Contacts"},
		{key: "rock", class: "android.widget.TextView", text: `Dwayne "The Rock" O'Neil`},
	}
}

func keys(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.key
	}
	return out
}

func TestSelectXPath(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"//android.widget.EditText[@text='First name']", []string{"first"}},
		{"//android.widget.EditText[contains(@text,'First') or contains(@hint,'First')]", []string{"first", "typed"}},
		{"//android.widget.Button[@text='Save']", []string{"save"}},
		{"//*[@content-desc='Create contact']", []string{"fab"}},
		{"//*[@clickable='true']", []string{"first", "typed", "save", "fab"}},
		{"//android.widget.Button | //android.widget.ImageButton", []string{"save", "fab"}},
		{`//android.widget.TextView[contains(@text,"Cont")]`, []string{"title"}},
		{"//*[(@text='Save' or @text='Done') and @clickable='true']", []string{"save"}},
		{"//android.widget.EditText[2]", []string{"typed"}},
		{"//android.widget.Button[starts-with(@text,'Sa')]", []string{"save"}},
		{`//android.widget.TextView[contains(@text,concat('Dwayne "The Rock" O', "'", 'Neil'))]`, []string{"rock"}},
		{`//android.widget.TextView[@text=concat('Dwayne "The Rock" O', "'", 'Neil')]`, []string{"rock"}},
		{"//android.widget.CheckBox", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := selectXPath(screenNodes(), tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(got))
		})
	}
}

func TestSelectXPath_SkipsRoot(t *testing.T) {
	got, err := selectXPath(screenNodes(), "//*")
	require.NoError(t, err)
	assert.Len(t, got, len(screenNodes()))
}

func TestSelectXPath_Invalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"//android.widget.Button[@text='Save'",
		"//android.widget.Button[@text='Save]",
		"//android.widget.Button[",
	} {
		_, err := selectXPath(screenNodes(), expr)
		assert.Error(t, err, expr)
	}
}

func TestPageSource_EscapesQuotes(t *testing.T) {
	src := pageSource(screenNodes())
	assert.Contains(t, src, `text="Dwayne &#34;The Rock&#34; O&#39;Neil"`)
	assert.Contains(t, src, `<android.widget.ImageButton index="3"`)
}
