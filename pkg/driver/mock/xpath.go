package mock

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// selectXPath evaluates expr against the page source of nodes, the same
// document a real server queries, and maps matches back through their index.
func selectXPath(nodes []*node, expr string) ([]*node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	doc, err := xmlquery.Parse(strings.NewReader(pageSource(nodes)))
	if err != nil {
		return nil, fmt.Errorf("parse page source: %w", err)
	}

	var out []*node
	for _, el := range xmlquery.QuerySelectorAll(doc, compiled) {
		if el.Type != xmlquery.ElementNode || el.Data == rootTag {
			continue
		}
		i, err := strconv.Atoi(el.SelectAttr("index"))
		if err != nil || i < 0 || i >= len(nodes) {
			continue
		}
		out = append(out, nodes[i])
	}
	return out, nil
}
