package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Ads ────────────────────

type AdType string

const (
	AdBanner       AdType = "Banner"
	AdSkyscraper   AdType = "Skyscraper"
	AdVideo        AdType = "Video"
	AdPopUnder     AdType = "Pop-under"
	AdDirectLink   AdType = "DirectLink"
	AdNative       AdType = "Native"
	AdInterstitial AdType = "Interstitial"
)

type Placement string

const (
	PlacementHeader         Placement = "Header"
	PlacementSidebar        Placement = "Sidebar"
	PlacementFooter         Placement = "Footer"
	PlacementInContent      Placement = "In-Content"
	PlacementPopup          Placement = "Popup"
	PlacementVideoPlayer    Placement = "Video-Player"
	PlacementBetweenContent Placement = "Between-Content"
	PlacementMobileBanner   Placement = "Mobile-Banner"
)

var Placements = []Placement{
	PlacementHeader, PlacementSidebar, PlacementFooter, PlacementInContent,
	PlacementPopup, PlacementVideoPlayer, PlacementBetweenContent, PlacementMobileBanner,
}

func (p Placement) Valid() bool {
	for _, known := range Placements {
		if p == known {
			return true
		}
	}
	return false
}

// TargetAll matches every page or device in a targeting list.
const TargetAll = "all"

type Ad struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name" validate:"required,max=100"`
	Type            AdType     `json:"type" validate:"required,oneof=Banner Skyscraper Video Pop-under DirectLink Native Interstitial"`
	Placement       Placement  `json:"placement" validate:"required,oneof=Header Sidebar Footer In-Content Popup Video-Player Between-Content Mobile-Banner"`
	Code            string     `json:"code" validate:"required"`
	TargetPages     []string   `json:"targetPages"`
	TargetDevices   []string   `json:"targetDevices" validate:"dive,oneof=desktop mobile tablet all"`
	TargetCountries []string   `json:"targetCountries"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	// IsActive defaults to true on create when the body omits it.
	IsActive        bool       `json:"isActive"`
	Priority        int        `json:"priority" validate:"gte=1,lte=10"`
	Impressions     int64      `json:"impressions"`
	Clicks          int64      `json:"clicks"`
	CreatedBy       *uuid.UUID `json:"createdBy,omitempty"`
	LastModifiedBy  *uuid.UUID `json:"lastModifiedBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (a *Ad) Validate() error {
	ve := &ValidationError{}
	validateStruct(a, ve)
	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		ve.Add("endDate", "must not be before startDate")
	}
	return ve.Err()
}

// ApplyDefaults sets the start date to now and the default priority.
func (a *Ad) ApplyDefaults(now time.Time) {
	if a.StartDate == nil {
		t := now
		a.StartDate = &t
	}
	if a.Priority == 0 {
		a.Priority = 5
	}
	if a.TargetPages == nil {
		a.TargetPages = []string{}
	}
	if a.TargetDevices == nil {
		a.TargetDevices = []string{}
	}
	if a.TargetCountries == nil {
		a.TargetCountries = []string{}
	}
}

// IsCurrentlyActive is true when the ad is enabled and now falls inside its
// schedule window.
func (a *Ad) IsCurrentlyActive(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.StartDate != nil && a.StartDate.After(now) {
		return false
	}
	if a.EndDate != nil && a.EndDate.Before(now) {
		return false
	}
	return true
}

// CTR is the click-through rate in percent.
func (a *Ad) CTR() float64 {
	if a.Impressions == 0 {
		return 0
	}
	return float64(a.Clicks) / float64(a.Impressions) * 100
}
