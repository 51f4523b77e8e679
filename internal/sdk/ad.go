package sdk

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/patrickwarner/adunits/internal/models"
	"go.uber.org/zap"
)

type adState int

const (
	adCreated adState = iota
	adLoading
	adLoaded
	adShown
	adDestroyed
)

// baseAd holds the lifecycle shared by every ad object. Format specific
// types wrap it and translate its hooks into their own listener methods.
type baseAd struct {
	client      *Client
	placementID string
	format      models.AdFormat
	id          string

	mu     sync.Mutex
	state  adState
	gen    uint64 // bumped by every load and by Destroy
	cancel context.CancelFunc
	bid    *models.Bid

	// beforeDeliver, when set, runs just before a load result is delivered.
	beforeDeliver func()
}

func newBaseAd(client *Client, placementID string, format models.AdFormat) baseAd {
	return baseAd{
		client:      client,
		placementID: placementID,
		format:      format,
		id:          uuid.NewString(),
	}
}

// ID returns the unique identifier of this ad object.
func (a *baseAd) ID() string { return a.id }

// PlacementID returns the placement the ad was created for.
func (a *baseAd) PlacementID() string { return a.placementID }

// Format returns the ad format.
func (a *baseAd) Format() models.AdFormat { return a.format }

// IsAdValid reports whether the ad is loaded and can still be shown.
func (a *baseAd) IsAdValid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == adLoaded
}

// load starts an asynchronous ad request. Exactly one of onLoaded or onError
// runs per call unless the ad is reloaded or destroyed before the result is
// delivered, in which case neither runs.
func (a *baseAd) load(onLoaded func(), onError func(*AdError)) {
	a.mu.Lock()
	switch a.state {
	case adDestroyed:
		a.mu.Unlock()
		return
	case adShown:
		gen := a.gen
		a.mu.Unlock()
		go a.deliver(gen, func() {
			onError(newAdError(CodeLoadTooFrequently, "Ad was already shown; create a new ad object"))
		})
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.gen++
	gen := a.gen
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.state = adLoading
	a.bid = nil
	a.mu.Unlock()

	go func() {
		defer cancel()

		var bid *models.Bid
		var err error
		if !IsInitialized() {
			err = newAdError(CodeInternalError, "SDK not initialized")
		} else {
			bid, err = a.client.RequestAd(ctx, a.placementID, a.format)
		}

		a.mu.Lock()
		if a.gen != gen || a.state != adLoading {
			a.mu.Unlock()
			a.client.logger.Debug("dropping superseded load result",
				zap.String("ad_id", a.id),
				zap.String("placement_id", a.placementID))
			return
		}
		a.cancel = nil
		if err != nil {
			a.state = adCreated
			a.mu.Unlock()
			a.deliver(gen, func() { onError(asAdError(err)) })
			return
		}
		a.bid = bid
		a.state = adLoaded
		a.mu.Unlock()
		a.deliver(gen, onLoaded)
	}()
}

// deliver runs fn unless the ad was reloaded or destroyed since gen.
func (a *baseAd) deliver(gen uint64, fn func()) {
	if a.beforeDeliver != nil {
		a.beforeDeliver()
	}
	a.mu.Lock()
	current := a.gen == gen
	a.mu.Unlock()
	if !current {
		a.client.logger.Debug("dropping load result of destroyed ad", zap.String("ad_id", a.id))
		return
	}
	fn()
}

// markShown moves a loaded ad to shown and returns its bid.
func (a *baseAd) markShown() (*models.Bid, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case adLoaded:
		a.state = adShown
		return a.bid, nil
	case adShown:
		return nil, ErrAlreadyShown
	case adDestroyed:
		return nil, ErrDestroyed
	default:
		return nil, ErrNotLoaded
	}
}

// loadedBid returns the bid of a loaded or shown ad.
func (a *baseAd) loadedBid() *models.Bid {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == adLoaded || a.state == adShown {
		return a.bid
	}
	return nil
}

func (a *baseAd) destroyed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == adDestroyed
}

// destroy cancels any in-flight request and silences all later callbacks.
func (a *baseAd) destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.gen++
	a.state = adDestroyed
	a.bid = nil
}
