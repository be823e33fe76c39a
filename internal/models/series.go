package models

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSeasonExists    = errors.New("season already exists")
	ErrSeasonNotFound  = errors.New("season not found")
	ErrEpisodeExists   = errors.New("episode already exists in season")
	ErrEpisodeNotFound = errors.New("episode not found")
)

// ──────────────────── Series ────────────────────

type SeriesStatus string

const (
	SeriesReturning    SeriesStatus = "Returning Series"
	SeriesEnded        SeriesStatus = "Ended"
	SeriesCanceled     SeriesStatus = "Canceled"
	SeriesInProduction SeriesStatus = "In Production"
)

type Series struct {
	Content
	SeriesStatus     SeriesStatus `json:"seriesStatus,omitempty" validate:"omitempty,oneof='Returning Series' Ended Canceled 'In Production'"`
	Networks         []Credit     `json:"networks,omitempty" validate:"dive"`
	Creators         []Credit     `json:"creators,omitempty" validate:"dive"`
	Seasons          []Season     `json:"seasons" validate:"dive"`
	NumberOfSeasons  int          `json:"numberOfSeasons"`
	NumberOfEpisodes int          `json:"numberOfEpisodes"`
}

type Season struct {
	ID           uuid.UUID `json:"id"`
	SeasonNumber int       `json:"seasonNumber" validate:"gte=0"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty" validate:"max=2000"`
	PosterPath   string    `json:"posterPath,omitempty"`
	AirDate      string    `json:"airDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TMDbID       *int      `json:"tmdbId,omitempty"`
	Episodes     []Episode `json:"episodes" validate:"dive"`
}

type Episode struct {
	ID            uuid.UUID      `json:"id"`
	EpisodeNumber int            `json:"episodeNumber" validate:"gte=1"`
	Title         string         `json:"title" validate:"required,max=200"`
	Overview      string         `json:"overview,omitempty" validate:"max=2000"`
	Runtime       int            `json:"runtime,omitempty" validate:"gte=0"`
	AirDate       string         `json:"airDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StillPath     string         `json:"stillPath,omitempty"`
	Servers       []StreamServer `json:"servers,omitempty" validate:"dive"`
	DownloadLinks []DownloadLink `json:"downloadLinks,omitempty" validate:"dive"`
	Rating        float64        `json:"rating" validate:"gte=0,lte=10"`
	Views         int64          `json:"views"`
	Active        bool           `json:"active"`
	TMDbID        *int           `json:"tmdbId,omitempty"`
}

// SeasonMeta carries the optional season fields supplied by callers.
type SeasonMeta struct {
	Name       string `json:"name"`
	Overview   string `json:"overview"`
	PosterPath string `json:"posterPath"`
	AirDate    string `json:"airDate"`
	TMDbID     *int   `json:"tmdbId,omitempty"`
}

func (s *Series) Validate(now time.Time) error {
	ve := &ValidationError{}
	s.validateContent(s, now, ve)
	seen := map[int]bool{}
	for i, season := range s.Seasons {
		if seen[season.SeasonNumber] {
			ve.Add("seasons["+strconv.Itoa(i)+"].seasonNumber", "is duplicated")
		}
		seen[season.SeasonNumber] = true
		eps := map[int]bool{}
		for j, ep := range season.Episodes {
			if eps[ep.EpisodeNumber] {
				ve.Add("seasons["+strconv.Itoa(i)+"].episodes["+strconv.Itoa(j)+"].episodeNumber", "is duplicated")
			}
			eps[ep.EpisodeNumber] = true
		}
	}
	return ve.Err()
}

// DefaultSeasonName is used when a season is created without a name.
func DefaultSeasonName(n int) string {
	if n == 0 {
		return "Specials"
	}
	return "Season " + strconv.Itoa(n)
}

// Recount derives NumberOfSeasons and NumberOfEpisodes from the season list.
// Stores call it on every save.
func (s *Series) Recount() {
	total := 0
	for _, season := range s.Seasons {
		total += len(season.Episodes)
	}
	s.NumberOfSeasons = len(s.Seasons)
	s.NumberOfEpisodes = total
}

// Normalize assigns missing internal ids, default season names and sorts
// seasons and episodes by number. Recount is applied last.
func (s *Series) Normalize() {
	for i := range s.Seasons {
		season := &s.Seasons[i]
		if season.ID == uuid.Nil {
			season.ID = uuid.New()
		}
		if season.Name == "" {
			season.Name = DefaultSeasonName(season.SeasonNumber)
		}
		if season.Episodes == nil {
			season.Episodes = []Episode{}
		}
		for j := range season.Episodes {
			if season.Episodes[j].ID == uuid.Nil {
				season.Episodes[j].ID = uuid.New()
			}
		}
		sort.SliceStable(season.Episodes, func(a, b int) bool {
			return season.Episodes[a].EpisodeNumber < season.Episodes[b].EpisodeNumber
		})
	}
	if s.Seasons == nil {
		s.Seasons = []Season{}
	}
	sort.SliceStable(s.Seasons, func(a, b int) bool {
		return s.Seasons[a].SeasonNumber < s.Seasons[b].SeasonNumber
	})
	s.Recount()
}

// MatchStored gives seasons and episodes the internal ids they carry in prev
// under the same numbers, along with the stored episode views. Ids and views
// sent by a client are discarded; unmatched entries get fresh ids on
// Normalize and start with no views. s and prev may share season storage.
func (s *Series) MatchStored(prev *Series) {
	type epKey struct{ season, episode int }
	seasonIDs := map[int]uuid.UUID{}
	stored := map[epKey]Episode{}
	for _, season := range prev.Seasons {
		seasonIDs[season.SeasonNumber] = season.ID
		for _, ep := range season.Episodes {
			stored[epKey{season.SeasonNumber, ep.EpisodeNumber}] = ep
		}
	}
	for i := range s.Seasons {
		season := &s.Seasons[i]
		season.ID = seasonIDs[season.SeasonNumber]
		for k := range season.Episodes {
			ep := &season.Episodes[k]
			old := stored[epKey{season.SeasonNumber, ep.EpisodeNumber}]
			ep.ID, ep.Views = old.ID, old.Views
		}
	}
}

// KeepEpisodeViews copies the view count stored for each episode id onto s.
// Episodes unknown to stored have no views. Stores call it while holding the
// row, so increments that landed since s was read survive the save.
func (s *Series) KeepEpisodeViews(stored []Season) {
	views := map[uuid.UUID]int64{}
	for _, season := range stored {
		for _, ep := range season.Episodes {
			views[ep.ID] = ep.Views
		}
	}
	for i := range s.Seasons {
		for j := range s.Seasons[i].Episodes {
			ep := &s.Seasons[i].Episodes[j]
			ep.Views = views[ep.ID]
		}
	}
}

func (s *Series) seasonIndex(n int) int {
	for i := range s.Seasons {
		if s.Seasons[i].SeasonNumber == n {
			return i
		}
	}
	return -1
}

// Season returns the season numbered n.
func (s *Series) Season(n int) (*Season, error) {
	i := s.seasonIndex(n)
	if i < 0 {
		return nil, ErrSeasonNotFound
	}
	return &s.Seasons[i], nil
}

// AddSeason appends a season. It fails with ErrSeasonExists when a season with
// the same number is already present.
func (s *Series) AddSeason(n int, meta SeasonMeta) (*Season, error) {
	if n < 0 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "seasonNumber", Message: "must be greater than or equal to 0"}}}
	}
	if s.seasonIndex(n) >= 0 {
		return nil, ErrSeasonExists
	}
	season := Season{
		ID:           uuid.New(),
		SeasonNumber: n,
		Name:         meta.Name,
		Overview:     meta.Overview,
		PosterPath:   meta.PosterPath,
		AirDate:      meta.AirDate,
		TMDbID:       meta.TMDbID,
		Episodes:     []Episode{},
	}
	if season.Name == "" {
		season.Name = DefaultSeasonName(n)
	}
	s.Seasons = append(s.Seasons, season)
	s.Normalize()
	return s.Season(n)
}

// UpdateSeason replaces the metadata of season n, keeping its episodes.
func (s *Series) UpdateSeason(n int, meta SeasonMeta) (*Season, error) {
	season, err := s.Season(n)
	if err != nil {
		return nil, err
	}
	if meta.Name != "" {
		season.Name = meta.Name
	}
	season.Overview = meta.Overview
	season.PosterPath = meta.PosterPath
	season.AirDate = meta.AirDate
	if meta.TMDbID != nil {
		season.TMDbID = meta.TMDbID
	}
	return season, nil
}

func (s *Series) RemoveSeason(n int) error {
	i := s.seasonIndex(n)
	if i < 0 {
		return ErrSeasonNotFound
	}
	s.Seasons = append(s.Seasons[:i], s.Seasons[i+1:]...)
	s.Recount()
	return nil
}

// AddEpisode inserts ep into season n. The season must exist already.
func (s *Series) AddEpisode(n int, ep Episode) (*Episode, error) {
	season, err := s.Season(n)
	if err != nil {
		return nil, err
	}
	if ep.EpisodeNumber < 1 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "episodeNumber", Message: "must be greater than or equal to 1"}}}
	}
	for _, existing := range season.Episodes {
		if existing.EpisodeNumber == ep.EpisodeNumber {
			return nil, ErrEpisodeExists
		}
	}
	ep.ID = uuid.New()
	ep.Views = 0
	season.Episodes = append(season.Episodes, ep)
	s.Normalize()
	return s.Episode(n, ep.EpisodeNumber)
}

// Episode looks an episode up by its (season, episode) number pair.
func (s *Series) Episode(n, m int) (*Episode, error) {
	season, err := s.Season(n)
	if err != nil {
		return nil, err
	}
	for i := range season.Episodes {
		if season.Episodes[i].EpisodeNumber == m {
			return &season.Episodes[i], nil
		}
	}
	return nil, ErrEpisodeNotFound
}

// EpisodeByID looks an episode up by its internal id.
func (s *Series) EpisodeByID(id uuid.UUID) (*Season, *Episode, error) {
	for i := range s.Seasons {
		for j := range s.Seasons[i].Episodes {
			if s.Seasons[i].Episodes[j].ID == id {
				return &s.Seasons[i], &s.Seasons[i].Episodes[j], nil
			}
		}
	}
	return nil, nil, ErrEpisodeNotFound
}

// UpdateEpisode replaces episode (n, m) with ep. The internal id and views
// are kept. Changing the episode number is allowed when the new number is free.
func (s *Series) UpdateEpisode(n, m int, ep Episode) (*Episode, error) {
	current, err := s.Episode(n, m)
	if err != nil {
		return nil, err
	}
	if ep.EpisodeNumber == 0 {
		ep.EpisodeNumber = m
	}
	if ep.EpisodeNumber != m {
		if _, err := s.Episode(n, ep.EpisodeNumber); err == nil {
			return nil, ErrEpisodeExists
		}
	}
	ep.ID = current.ID
	ep.Views = current.Views
	*current = ep
	s.Normalize()
	return s.Episode(n, ep.EpisodeNumber)
}

func (s *Series) RemoveEpisode(n, m int) error {
	season, err := s.Season(n)
	if err != nil {
		return err
	}
	for i := range season.Episodes {
		if season.Episodes[i].EpisodeNumber == m {
			season.Episodes = append(season.Episodes[:i], season.Episodes[i+1:]...)
			s.Recount()
			return nil
		}
	}
	return ErrEpisodeNotFound
}

func (s *Series) FieldValues(field string) []string {
	switch field {
	case "creators.name":
		return creditNames(s.Creators)
	case "networks.name":
		return creditNames(s.Networks)
	case "seasons.episodes.title":
		var out []string
		for _, season := range s.Seasons {
			for _, ep := range season.Episodes {
				out = append(out, ep.Title)
			}
		}
		return out
	}
	return s.Content.FieldValues(field)
}
