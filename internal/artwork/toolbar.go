package artwork

import (
	"fmt"

	"artgrab/internal/dom"

	"golang.org/x/net/html"
)

// Class names of the toolbar elements
const (
	ToolbarClass  = "artgrab-toolbar"
	ButtonClass   = "artgrab-download"
	PartsClass    = "artgrab-parts"
	BulkClass     = "artgrab-bulk"
	StatusClass   = "artgrab-status"
	toolbarMarker = "data-artgrab"
)

// toolbar is the inserted UI surface. Only the patch that built it mutates it.
type toolbar struct {
	root   *html.Node
	button *html.Node
	parts  *html.Node
	bulk   *html.Node
	status *html.Node
}

func newToolbar(doc *dom.Document) *toolbar {
	tb := &toolbar{
		root:   doc.CreateElement("div", dom.A("class", ToolbarClass), dom.A(toolbarMarker, "")),
		button: doc.CreateElement("button", dom.A("class", ButtonClass), dom.A("type", "button")),
		parts:  doc.CreateElement("select", dom.A("class", PartsClass)),
		bulk:   doc.CreateElement("input", dom.A("class", BulkClass), dom.A("type", "checkbox")),
		status: doc.CreateElement("span", dom.A("class", StatusClass)),
	}
	doc.AppendChild(tb.button, doc.CreateText("Download"))

	label := doc.CreateElement("label")
	doc.AppendChild(label, tb.bulk)
	doc.AppendChild(label, doc.CreateText(" All parts"))

	for _, n := range []*html.Node{tb.button, tb.parts, label, tb.status} {
		doc.AppendChild(tb.root, n)
	}
	return tb
}

// setParts clears the selector and adds one option per part
func (tb *toolbar) setParts(doc *dom.Document, count int) {
	options := make([]*html.Node, 0, count)
	for i := 0; i < count; i++ {
		attrs := []html.Attribute{dom.A("value", fmt.Sprint(i))}
		if i == 0 {
			attrs = append(attrs, dom.A("selected", ""))
		}
		opt := doc.CreateElement("option", attrs...)
		doc.AppendChild(opt, doc.CreateText(fmt.Sprintf("%d / %d", i+1, count)))
		options = append(options, opt)
	}
	doc.ReplaceChildren(tb.parts, options...)
}

func (tb *toolbar) bulkChecked(doc *dom.Document) bool {
	_, on := doc.Attr(tb.bulk, "checked")
	return on
}
