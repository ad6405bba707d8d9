package patch

import (
	"errors"
	"testing"

	"artgrab/internal/nav"
	"artgrab/internal/scope"
	"artgrab/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPatch struct {
	name     string
	attached int
	err      error
	seen     []nav.Kind
}

func (c *countingPatch) Name() string { return c.name }

func (c *countingPatch) Attach(p *Page) error {
	c.attached++
	if c.err != nil {
		return c.err
	}
	p.Bus.SubscribeScoped(nav.WholeNavigate, func(e nav.Event) { c.seen = append(c.seen, e.Kind) }, p.Scope)
	return nil
}

func newPage() *Page {
	return &Page{Bus: nav.NewBus(nil), Scope: scope.New("page")}
}

func TestRegisterAttachesImmediately(t *testing.T) {
	page := newPage()
	reg := NewRegistry(page)
	p := &countingPatch{name: "toolbar"}

	require.NoError(t, reg.Register(p))
	assert.Equal(t, 1, p.attached)
	assert.Equal(t, []Patch{p}, reg.Patches())

	page.Bus.Publish(nav.WholeNavigate, "/")
	assert.Equal(t, []nav.Kind{nav.WholeNavigate}, p.seen)
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry(newPage())
	first := &countingPatch{name: "toolbar"}
	second := &countingPatch{name: "toolbar"}

	require.NoError(t, reg.Register(first))
	assert.Error(t, reg.Register(second))
	assert.Zero(t, second.attached)
	assert.Len(t, reg.Patches(), 1)
}

func TestRegisterAttachFailure(t *testing.T) {
	tl := logger.NewTestLogger()
	page := newPage()
	page.Log = tl
	reg := NewRegistry(page)

	broken := &countingPatch{name: "broken", err: errors.New("no anchor")}
	err := reg.Register(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no anchor")
	assert.Empty(t, reg.Patches())
	assert.True(t, tl.HasMessage("Patch failed to attach"))

	broken.err = nil
	assert.NoError(t, reg.Register(broken))
}

func TestCancellingPageScopeDetachesPatches(t *testing.T) {
	page := newPage()
	reg := NewRegistry(page)
	p := &countingPatch{name: "toolbar"}
	require.NoError(t, reg.Register(p))

	page.Scope.Cancel()
	page.Bus.Publish(nav.WholeNavigate, "/")
	assert.Empty(t, p.seen)
	assert.Zero(t, page.Bus.SubscriberCount(nav.WholeNavigate))
}
