package sdk

import (
	"context"
	"strconv"
	"sync"

	"github.com/patrickwarner/adunits/internal/models"
	"go.uber.org/zap"
)

// Creative is the ad content handed to a Surface.
type Creative struct {
	ID         string
	CampaignID string
	Markup     string
	Price      float64
}

func creativeFromBid(b *models.Bid) Creative {
	return Creative{ID: b.CrID, CampaignID: b.CID, Markup: b.Adm, Price: b.Price}
}

// Surface is the host screen a fullscreen ad is presented on. Present must
// not block the caller for long; the surface reports what the user does
// through the Presentation until it calls Dismiss.
type Surface interface {
	Present(p *Presentation)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(p *Presentation)

func (f SurfaceFunc) Present(p *Presentation) { f(p) }

// presentationHooks are the per-format listener calls fired by a Presentation.
// Any hook may be nil.
type presentationHooks struct {
	impression    func()
	click         func()
	videoComplete func()
	rewardGranted func()
	rewardFailed  func()
	willClose     func()
	didClose      func()
}

// Presentation is one showing of a fullscreen ad.
type Presentation struct {
	Creative Creative
	Format   models.AdFormat

	ad    *baseAd
	bid   models.Bid
	hooks presentationHooks

	mu        sync.Mutex
	completed bool
	dismissed bool
}

func newPresentation(ad *baseAd, bid *models.Bid, hooks presentationHooks) *Presentation {
	return &Presentation{
		Creative: creativeFromBid(bid),
		Format:   ad.format,
		ad:       ad,
		bid:      *bid,
		hooks:    hooks,
	}
}

// Rewarded reports whether completing the ad earns a reward.
func (p *Presentation) Rewarded() bool {
	return p.Format.IsRewarded()
}

func (p *Presentation) fire(hook func()) {
	if hook != nil && !p.ad.destroyed() {
		hook()
	}
}

// start logs the impression and hands the presentation to the surface.
func (p *Presentation) start(surface Surface) {
	p.fire(p.hooks.impression)
	p.ad.client.trackAsync("impression", p.bid.ImpURL)
	surface.Present(p)
}

// Click records a click on the ad.
func (p *Presentation) Click() {
	p.mu.Lock()
	if p.dismissed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.ad.client.trackAsync("click", p.bid.ClickURL)
	p.fire(p.hooks.click)
}

// CompleteVideo records that the user watched the ad to the end. For
// rewarded formats this makes the reward claimable on Dismiss.
func (p *Presentation) CompleteVideo() {
	p.mu.Lock()
	if p.dismissed || p.completed {
		p.mu.Unlock()
		return
	}
	p.completed = true
	p.mu.Unlock()
	if p.bid.EventURL != "" {
		p.ad.client.trackAsync("video_complete", p.bid.EventURL+"&type=video_complete")
	}
	p.fire(p.hooks.videoComplete)
}

// Dismiss closes the ad. Rewarded ads whose video completed validate the
// reward with the network first. Only the first call has an effect.
func (p *Presentation) Dismiss() {
	p.mu.Lock()
	if p.dismissed {
		p.mu.Unlock()
		return
	}
	p.dismissed = true
	completed := p.completed
	p.mu.Unlock()

	if p.Rewarded() && completed {
		p.claimReward()
	}
	p.fire(p.hooks.willClose)
	p.fire(p.hooks.didClose)
}

func (p *Presentation) claimReward() {
	client := p.ad.client
	ctx, cancel := context.WithTimeout(context.Background(), client.cfg.Timeout)
	defer cancel()

	err := client.Track(ctx, "reward", p.bid.EventURL+"&type=reward")
	if err != nil {
		client.logger.Warn("server reward failed",
			zap.String("placement_id", p.ad.placementID),
			zap.String("creative_id", p.Creative.ID),
			zap.Error(err))
		p.fire(p.hooks.rewardFailed)
		return
	}
	client.logger.Debug("server reward granted",
		zap.String("placement_id", p.ad.placementID),
		zap.String("price", strconv.FormatFloat(p.Creative.Price, 'f', 2, 64)))
	p.fire(p.hooks.rewardGranted)
}
