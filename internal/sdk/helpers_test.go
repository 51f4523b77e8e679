package sdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"go.uber.org/zap"
)

// reset clears the process-wide settings between tests.
func reset() {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	initialized = false
	settings = Settings{}
}

// fakeNetwork is a scripted ad server recording every request it sees.
type fakeNetwork struct {
	mu       sync.Mutex
	fill     bool
	status   int
	reward   int
	requests []models.OpenRTBRequest
	pixels   []string
	srv      *httptest.Server
}

func newFakeNetwork(t *testing.T) *fakeNetwork {
	t.Helper()
	f := &fakeNetwork{fill: true, status: http.StatusOK, reward: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/ad", f.handleAd)
	mux.HandleFunc("/impression", f.pixel("impression", http.StatusOK))
	mux.HandleFunc("/click", f.pixel("click", http.StatusFound))
	mux.HandleFunc("/event", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.pixels = append(f.pixels, "event:"+r.URL.Query().Get("type"))
		code := f.reward
		f.mu.Unlock()
		w.WriteHeader(code)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeNetwork) handleAd(w http.ResponseWriter, r *http.Request) {
	var req models.OpenRTBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fill, status := f.fill, f.status
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, "boom", status)
		return
	}
	resp := models.OpenRTBResponse{ID: req.ID}
	if !fill {
		resp.Nbr = 1
	} else {
		adm := "<div>ad</div>"
		if req.Ext.Format == models.FormatNative.String() {
			adm = `{"title":"Hello","body":"World","cta":"Install"}`
		}
		resp.SeatBid = []models.SeatBid{{Bid: []models.Bid{{
			ID:       "b1",
			ImpID:    "1",
			CrID:     "cr1",
			CID:      "c1",
			Adm:      adm,
			Price:    1.5,
			ImpURL:   "/impression?t=x",
			ClickURL: "/click?t=x",
			EventURL: "/event?t=x",
		}}}}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeNetwork) pixel(name string, code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.pixels = append(f.pixels, name)
		f.mu.Unlock()
		if code == http.StatusFound {
			http.Redirect(w, r, "https://example.com/landing", code)
			return
		}
		w.WriteHeader(code)
	}
}

func (f *fakeNetwork) set(fn func(f *fakeNetwork)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeNetwork) lastRequest() models.OpenRTBRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeNetwork) sawPixel(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pixels {
		if p == name {
			return true
		}
	}
	return false
}

func (f *fakeNetwork) client(metrics observability.MetricsRegistry) *Client {
	return NewClient(ClientConfig{
		BaseURL:     f.srv.URL,
		APIKey:      "k",
		PublisherID: 1,
		UserID:      "u1",
		UserAgent:   "test-agent",
		Timeout:     2 * time.Second,
	}, zap.NewNop(), metrics)
}

// events collects listener calls by name.
type events struct {
	ch chan string
}

func newEvents() *events { return &events{ch: make(chan string, 32)} }

func (e *events) add(name string) { e.ch <- name }

func (e *events) wait(t *testing.T, name string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case got := <-e.ch:
			if got == name {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", name)
		}
	}
}

func (e *events) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case got := <-e.ch:
		t.Fatalf("unexpected event %q", got)
	case <-time.After(d):
	}
}

// recordingSurface hands presentations to the test.
type recordingSurface struct {
	ch chan *Presentation
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{ch: make(chan *Presentation, 1)}
}

func (s *recordingSurface) Present(p *Presentation) { s.ch <- p }

func (s *recordingSurface) next(t *testing.T) *Presentation {
	t.Helper()
	select {
	case p := <-s.ch:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("nothing presented")
		return nil
	}
}
