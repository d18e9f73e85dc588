package mock

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const rootTag = "hierarchy"

// sourceAttrs are written for every element, in UiAutomator2 order.
var sourceAttrs = []string{
	"package", "class", "text", "resource-id", "content-desc", "hint",
	"clickable", "focusable", "enabled", "displayed",
}

// pageSource renders nodes the way UiAutomator2 dumps a hierarchy.
func pageSource(nodes []*node) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<%s index="0" class="%s" rotation="0">`+"\n", rootTag, rootTag)
	for i, n := range nodes {
		fmt.Fprintf(&b, `  <%s index="%d"`, n.class, i)
		for _, name := range sourceAttrs {
			v, _ := n.attr(name)
			fmt.Fprintf(&b, ` %s="%s"`, name, escape(v))
		}
		b.WriteString(" />\n")
	}
	fmt.Fprintf(&b, "</%s>", rootTag)
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
