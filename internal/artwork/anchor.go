package artwork

import (
	"fmt"

	"artgrab/internal/dom"
	"artgrab/pkg/config"

	"golang.org/x/net/html"
)

// Anchor decides where the toolbar is placed relative to the artwork title
type Anchor interface {
	Name() string
	// Place inserts toolbar relative to title
	Place(doc *dom.Document, title, toolbar *html.Node) error
}

type beforeTitle struct{}

func (beforeTitle) Name() string { return config.AnchorBeforeTitle }

func (beforeTitle) Place(doc *dom.Document, title, toolbar *html.Node) error {
	return doc.InsertAdjacent(title, dom.BeforeBegin, toolbar)
}

type afterTitle struct{}

func (afterTitle) Name() string { return config.AnchorAfterTitle }

func (afterTitle) Place(doc *dom.Document, title, toolbar *html.Node) error {
	return doc.InsertAdjacent(title, dom.AfterEnd, toolbar)
}

// panelEnd appends to the description block holding the title
type panelEnd struct{}

func (panelEnd) Name() string { return config.AnchorPanel }

func (panelEnd) Place(doc *dom.Document, title, toolbar *html.Node) error {
	if title.Parent == nil {
		return dom.ErrDetached
	}
	return doc.InsertAdjacent(title.Parent, dom.BeforeEnd, toolbar)
}

// AnchorFor returns the anchor variant called name
func AnchorFor(name string) (Anchor, error) {
	switch name {
	case config.AnchorBeforeTitle, "":
		return beforeTitle{}, nil
	case config.AnchorAfterTitle:
		return afterTitle{}, nil
	case config.AnchorPanel:
		return panelEnd{}, nil
	default:
		return nil, fmt.Errorf("unknown toolbar anchor %q", name)
	}
}
