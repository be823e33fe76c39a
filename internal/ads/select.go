// Package ads picks the ads to serve for a placement and records their
// impressions and clicks.
package ads

import (
	"sort"
	"strings"
	"time"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// Request is the targeting context of one ad slot.
type Request struct {
	Placement models.Placement
	Page      string
	Device    string
	Country   string
	// Limit truncates after ordering. Zero means all.
	Limit int
}

// targets reports whether list admits v. An empty list or the "all" wildcard
// admits everything; an empty v matches any list.
func targets(list []string, v string) bool {
	if len(list) == 0 || v == "" {
		return true
	}
	for _, t := range list {
		if strings.EqualFold(t, models.TargetAll) || strings.EqualFold(t, v) {
			return true
		}
	}
	return false
}

// Select filters candidates down to the ads that may be served for req at now,
// ordered by priority then recency.
func Select(candidates []*models.Ad, req Request, now time.Time) []*models.Ad {
	out := make([]*models.Ad, 0, len(candidates))
	for _, a := range candidates {
		if a.Placement != req.Placement || !a.IsCurrentlyActive(now) {
			continue
		}
		if !targets(a.TargetPages, req.Page) || !targets(a.TargetDevices, req.Device) {
			continue
		}
		out = append(out, a)
	}
	if req.Country != "" {
		narrowed := out[:0]
		for _, a := range out {
			if targets(a.TargetCountries, req.Country) {
				narrowed = append(narrowed, a)
			}
		}
		out = narrowed
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out
}
