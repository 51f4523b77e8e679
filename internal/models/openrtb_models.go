package models

// OpenRTBRequest is the subset of the IAB OpenRTB 2.5 Bid Request the SDK
// sends when an ad object is loaded. One request carries one impression.
type OpenRTBRequest struct {
	ID     string       `json:"id"`             // Unique ID of the ad request, generated per load.
	Imp    []Impression `json:"imp"`            // Exactly one impression for the ad object being loaded.
	User   User         `json:"user"`           // User the ad is requested for.
	Device Device       `json:"device"`         // Device the ad will be presented on.
	Test   int          `json:"test,omitempty"` // 1 asks the network for a test ad that is never billed.
	Ext    RequestExt   `json:"ext,omitempty"`
}

// Impression describes the single ad slot being requested.
type Impression struct {
	ID    string `json:"id"`
	TagID string `json:"tagid"` // Placement ID the ad object was created with.
	// W and H are the requested size; fullscreen formats leave them empty.
	W int `json:"w,omitempty"`
	H int `json:"h,omitempty"`
	// Instl is 1 for interstitial (fullscreen) placements.
	Instl int `json:"instl,omitempty"`
	// Rwdd is 1 when the user is rewarded for viewing the ad (OpenRTB 2.6).
	Rwdd int `json:"rwdd,omitempty"`
}

// User identifies who the ad is requested for.
type User struct {
	ID string `json:"id"`
}

// Device describes where the ad will be rendered.
type Device struct {
	UA string `json:"ua"`
	IP string `json:"ip,omitempty"`
}

// RequestExt carries SDK specific extensions.
type RequestExt struct {
	PublisherID int    `json:"publisher_id"`
	Format      string `json:"format,omitempty"` // AdFormat.String() of the requesting ad object.
	SDKVersion  string `json:"sdk_version,omitempty"`
	// KV holds free-form key-values attached by the host application.
	KV map[string]string `json:"kv,omitempty"`
}

// OpenRTBResponse is the bid response returned by the ad network.
type OpenRTBResponse struct {
	ID      string    `json:"id"`
	SeatBid []SeatBid `json:"seatbid"`
	// Nbr is the no-bid reason. 1 is returned for a plain no-fill.
	Nbr int `json:"nbr,omitempty"`
}

// SeatBid groups the bids of one seat.
type SeatBid struct {
	Bid []Bid `json:"bid"`
}

// Bid is the ad selected for the impression.
type Bid struct {
	ID    string  `json:"id"`
	ImpID string  `json:"impid"`
	CrID  string  `json:"crid"`
	CID   string  `json:"cid"`
	Adm   string  `json:"adm"` // Markup or JSON native assets.
	Price float64 `json:"price"`
	// Tracking URLs are relative to the ad network base URL and carry a signed token.
	ImpURL   string `json:"impurl,omitempty"`
	ClickURL string `json:"clkurl,omitempty"`
	// EventURL accepts an extra &type= parameter (reward, video_complete).
	EventURL string `json:"evturl,omitempty"`
}

// FirstBid returns the first bid of the response or nil on no-fill.
func (r *OpenRTBResponse) FirstBid() *Bid {
	if r == nil || len(r.SeatBid) == 0 || len(r.SeatBid[0].Bid) == 0 {
		return nil
	}
	return &r.SeatBid[0].Bid[0]
}
