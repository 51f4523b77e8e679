package session

import (
	"fmt"
	"sync"

	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/sdk"
)

// fakeHandle records the calls the controller makes on it.
type fakeHandle struct {
	id     string
	format models.AdFormat
	cb     Callbacks

	mu       sync.Mutex
	loads    int
	shows    int
	releases int
	showErr  error
	// onLoad, when set, runs inside Load.
	onLoad func(h *fakeHandle)
	// onShow, when set, runs inside a successful Show.
	onShow func(h *fakeHandle)
}

func (h *fakeHandle) ID() string              { return h.id }
func (h *fakeHandle) Format() models.AdFormat { return h.format }

func (h *fakeHandle) Load() {
	h.mu.Lock()
	h.loads++
	fn := h.onLoad
	h.mu.Unlock()
	if fn != nil {
		fn(h)
	}
}

func (h *fakeHandle) Show(sdk.Surface) error {
	h.mu.Lock()
	if h.showErr != nil {
		h.mu.Unlock()
		return h.showErr
	}
	h.shows++
	fn := h.onShow
	h.mu.Unlock()
	if fn != nil {
		fn(h)
	}
	return nil
}

func (h *fakeHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
}

func (h *fakeHandle) counts() (loads, shows, releases int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads, h.shows, h.releases
}

// fakeFactory allocates fakeHandles named H1, H2, ...
type fakeFactory struct {
	mu      sync.Mutex
	handles []*fakeHandle
	onLoad  func(h *fakeHandle)
}

func (f *fakeFactory) New(format models.AdFormat, cb Callbacks) AdHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &fakeHandle{
		id:     fmt.Sprintf("H%d", len(f.handles)+1),
		format: format,
		cb:     cb,
		onLoad: f.onLoad,
	}
	f.handles = append(f.handles, h)
	return h
}

func (f *fakeFactory) handle(i int) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[i]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

// recordingView keeps every button update and error shown.
type recordingView struct {
	mu      sync.Mutex
	buttons []Button
	errors  []string
}

func (v *recordingView) SetButton(title string, enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buttons = append(v.buttons, Button{Title: title, Enabled: enabled})
}

func (v *recordingView) ShowError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, message)
}

func (v *recordingView) last() Button {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.buttons[len(v.buttons)-1]
}
