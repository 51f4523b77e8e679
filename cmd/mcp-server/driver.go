package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/patrickwarner/adunits/internal/app"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/screens"
	"github.com/patrickwarner/adunits/internal/sdk"
	"go.uber.org/zap"
)

const maxViewLines = 64

// agentView records what a screen renders so tool results can report it.
type agentView struct {
	mu    sync.Mutex
	lines []string
}

var _ screens.View = (*agentView)(nil)

func (v *agentView) add(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = append(v.lines, fmt.Sprintf(format, args...))
	if len(v.lines) > maxViewLines {
		v.lines = v.lines[len(v.lines)-maxViewLines:]
	}
}

// drain returns and clears the lines rendered since the last call.
func (v *agentView) drain() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.lines
	v.lines = nil
	return out
}

func (v *agentView) SetButton(title string, enabled bool) {
	v.add("button %q enabled=%t", title, enabled)
}
func (v *agentView) ShowError(message string) { v.add("error: %s", message) }
func (v *agentView) SetStatus(text string)    { v.add("status: %q", text) }
func (v *agentView) Toast(text string)        { v.add("toast: %s", text) }
func (v *agentView) ShowCreative(c sdk.Creative) {
	v.add("creative %s price=%.2f", c.ID, c.Price)
}
func (v *agentView) ShowNative(layout screens.NativeLayout, a sdk.NativeAssets) {
	v.add("native %s: %s / %s / %s", layout, a.Headline, a.Body, a.CallToAction)
}

// autoSurface watches every fullscreen ad to the end and closes it.
type autoSurface struct {
	view *agentView
}

func (s autoSurface) Present(p *sdk.Presentation) {
	s.view.add("presented %s creative %s", p.Format, p.Creative.ID)
	go func() {
		p.CompleteVideo()
		p.Dismiss()
	}()
}

type openScreen struct {
	screen screens.Screen
	view   *agentView
}

// driver keeps one running screen per sample.
type driver struct {
	app    *app.App
	logger *zap.Logger
	ctx    context.Context

	mu      sync.Mutex
	screens map[models.SampleType]*openScreen
}

func newDriver(ctx context.Context, a *app.App) *driver {
	return &driver{app: a, logger: a.Logger, ctx: ctx, screens: make(map[models.SampleType]*openScreen)}
}

// open returns the running screen for name, starting it on first use.
func (d *driver) open(name string) (*openScreen, error) {
	sample, ok := models.SampleTypeFromName(name)
	if !ok {
		return nil, fmt.Errorf("unknown sample %q", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.screens[sample]; ok {
		return s, nil
	}

	view := &agentView{}
	screen, err := screens.New(sample, d.app.Deps(view, autoSurface{view: view}))
	if err != nil {
		return nil, err
	}
	screen.Start(d.ctx)
	s := &openScreen{screen: screen, view: view}
	d.screens[sample] = s
	d.logger.Info("opened sample", zap.String("sample", name))
	return s, nil
}

// close stops the screen for name. It reports whether one was running.
func (d *driver) close(name string) (bool, error) {
	sample, ok := models.SampleTypeFromName(name)
	if !ok {
		return false, fmt.Errorf("unknown sample %q", name)
	}
	d.mu.Lock()
	s, ok := d.screens[sample]
	delete(d.screens, sample)
	d.mu.Unlock()
	if ok {
		s.screen.Close()
	}
	return ok, nil
}

func (d *driver) closeAll() {
	d.mu.Lock()
	open := d.screens
	d.screens = make(map[models.SampleType]*openScreen)
	d.mu.Unlock()
	for _, s := range open {
		s.screen.Close()
	}
}
