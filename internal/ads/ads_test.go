package ads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikkhan0099/moviehubbd/internal/counters"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
	"github.com/anikkhan0099/moviehubbd/internal/store/memory"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ad(name string, prio int, mut func(*models.Ad)) *models.Ad {
	start := now.Add(-time.Hour)
	a := &models.Ad{
		ID: uuid.New(), Name: name, Placement: models.PlacementHeader, IsActive: true,
		Priority: prio, StartDate: &start, CreatedAt: now.Add(-time.Duration(prio) * time.Minute),
	}
	if mut != nil {
		mut(a)
	}
	return a
}

func names(list []*models.Ad) []string {
	out := []string{}
	for _, a := range list {
		out = append(out, a.Name)
	}
	return out
}

func TestSelectPageTargeting(t *testing.T) {
	candidates := []*models.Ad{
		ad("detail-only", 9, func(a *models.Ad) { a.TargetPages = []string{"detail"} }),
		ad("untargeted", 5, nil),
		ad("wildcard", 7, func(a *models.Ad) { a.TargetPages = []string{"all"} }),
		ad("homepage", 3, func(a *models.Ad) { a.TargetPages = []string{"homepage", "detail"} }),
	}
	got := Select(candidates, Request{Placement: models.PlacementHeader, Page: "homepage"}, now)
	assert.Equal(t, []string{"wildcard", "untargeted", "homepage"}, names(got))
}

func TestSelectScheduleAndPlacement(t *testing.T) {
	future := now.Add(time.Hour)
	past := now.Add(-time.Minute)
	candidates := []*models.Ad{
		ad("not-started", 5, func(a *models.Ad) { a.StartDate = &future }),
		ad("ended", 5, func(a *models.Ad) { a.EndDate = &past }),
		ad("disabled", 5, func(a *models.Ad) { a.IsActive = false }),
		ad("footer", 5, func(a *models.Ad) { a.Placement = models.PlacementFooter }),
		ad("live", 5, nil),
	}
	got := Select(candidates, Request{Placement: models.PlacementHeader}, now)
	assert.Equal(t, []string{"live"}, names(got))
}

func TestSelectDeviceCountryAndLimit(t *testing.T) {
	candidates := []*models.Ad{
		ad("desktop", 8, func(a *models.Ad) { a.TargetDevices = []string{"desktop"} }),
		ad("mobile-bd", 6, func(a *models.Ad) {
			a.TargetDevices = []string{"mobile"}
			a.TargetCountries = []string{"BD"}
		}),
		ad("mobile-us", 7, func(a *models.Ad) {
			a.TargetDevices = []string{"mobile"}
			a.TargetCountries = []string{"US"}
		}),
		ad("any", 4, nil),
	}
	got := Select(candidates, Request{Placement: models.PlacementHeader, Device: "mobile", Country: "bd"}, now)
	assert.Equal(t, []string{"mobile-bd", "any"}, names(got))

	got = Select(candidates, Request{Placement: models.PlacementHeader, Device: "mobile", Limit: 2}, now)
	assert.Equal(t, []string{"mobile-us", "mobile-bd"}, names(got))
}

func TestSelectTieBreaksOnRecency(t *testing.T) {
	older := ad("older", 5, func(a *models.Ad) { a.CreatedAt = now.Add(-2 * time.Hour) })
	newer := ad("newer", 5, func(a *models.Ad) { a.CreatedAt = now.Add(-time.Hour) })
	got := Select([]*models.Ad{older, newer}, Request{Placement: models.PlacementHeader}, now)
	assert.Equal(t, []string{"newer", "older"}, names(got))
}

func TestServiceRecordsCounters(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewService(st.Ads, counters.NewDirect(st))
	author := uuid.New()

	a := &models.Ad{Name: "banner", Type: models.AdBanner, Placement: models.PlacementSidebar, Code: "<div/>", IsActive: true}
	require.NoError(t, svc.Create(ctx, a, author))
	assert.Equal(t, 5, a.Priority)
	require.NotNil(t, a.CreatedBy)
	assert.Equal(t, author, *a.CreatedBy)

	require.NoError(t, svc.RecordImpression(ctx, a.ID))
	require.NoError(t, svc.RecordImpression(ctx, a.ID))
	require.NoError(t, svc.RecordClick(ctx, a.ID))
	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Impressions)
	assert.EqualValues(t, 1, got.Clicks)
	assert.InDelta(t, 50.0, got.CTR(), 1e-9)

	assert.ErrorIs(t, svc.RecordClick(ctx, uuid.New()), repository.ErrNotFound)

	served, err := svc.ForPlacement(ctx, Request{Placement: models.PlacementSidebar, Page: "homepage"})
	require.NoError(t, err)
	assert.Len(t, served, 1)
}

func TestServiceCreateValidates(t *testing.T) {
	st := memory.New()
	svc := NewService(st.Ads, counters.NewDirect(st))
	err := svc.Create(context.Background(), &models.Ad{Name: "x", Type: "Billboard", Placement: models.PlacementHeader, Code: "c"}, uuid.New())
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestServiceExpired(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewService(st.Ads, counters.NewDirect(st))
	svc.now = func() time.Time { return now }
	past := now.Add(-time.Hour)
	require.NoError(t, st.Ads.Create(ctx, ad("ended", 5, func(a *models.Ad) { a.EndDate = &past })))
	require.NoError(t, st.Ads.Create(ctx, ad("live", 5, nil)))

	n, err := svc.Expired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
