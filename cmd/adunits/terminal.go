package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/patrickwarner/adunits/internal/screens"
	"github.com/patrickwarner/adunits/internal/sdk"
)

// termView renders a screen as lines of text.
type termView struct {
	mu  sync.Mutex
	out io.Writer
}

var _ screens.View = (*termView)(nil)

func (v *termView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprintf(v.out, format+"\n", args...)
}

func (v *termView) SetButton(title string, enabled bool) {
	if enabled {
		v.printf("button: [%s]", title)
		return
	}
	v.printf("button: (%s)", title)
}

func (v *termView) ShowError(message string) { v.printf("error: %s", message) }

func (v *termView) SetStatus(text string) {
	if text != "" {
		v.printf("status: %s", text)
	}
}

func (v *termView) Toast(text string) { v.printf("toast: %s", text) }

func (v *termView) ShowCreative(c sdk.Creative) {
	v.printf("creative %s (%.2f): %s", c.ID, c.Price, c.Markup)
}

func (v *termView) ShowNative(layout screens.NativeLayout, a sdk.NativeAssets) {
	v.printf("native %s: %s | %s | %s [%s] %s", layout, a.Headline, a.Body, a.Advertiser, a.CallToAction, a.Sponsored)
}

// termSurface presents fullscreen ads until the user closes them.
type termSurface struct {
	view *termView

	mu      sync.Mutex
	current *sdk.Presentation
}

func (s *termSurface) Present(p *sdk.Presentation) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	kind := "ad"
	if p.Rewarded() {
		kind = "rewarded ad"
	}
	s.view.printf("showing %s %s: %s", kind, p.Creative.ID, p.Creative.Markup)
	s.view.printf("  click | watch | close")
}

// take returns the presentation on screen, clearing it when clear is set.
func (s *termSurface) take(clear bool) *sdk.Presentation {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.current
	if clear {
		s.current = nil
	}
	return p
}
