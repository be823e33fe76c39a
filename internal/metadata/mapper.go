package metadata

import (
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

const maxCast = 20

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	return cast.ToInt(date[:4])
}

func genreNames(gs []tmdbNamed) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		if g.Name != "" {
			out = append(out, g.Name)
		}
	}
	return out
}

// languageName renders an ISO 639-1 code in English ("ko" -> "Korean").
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}

func languages(spoken []tmdbLanguage, original string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	add(languageName(original))
	for _, l := range spoken {
		if l.EnglishName != "" {
			add(l.EnglishName)
		} else {
			add(languageName(l.ISO6391))
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func castOf(c tmdbCredits) []models.Credit {
	out := []models.Credit{}
	for _, m := range c.Cast {
		if len(out) == maxCast {
			break
		}
		if m.Name == "" {
			continue
		}
		out = append(out, models.Credit{Name: m.Name, Character: m.Character, ProfilePath: m.ProfilePath})
	}
	return out
}

func directorOf(c tmdbCredits) string {
	for _, m := range c.Crew {
		if m.Job == "Director" {
			return m.Name
		}
	}
	return ""
}

// trailerURL picks a YouTube trailer, official ones first.
func trailerURL(v tmdbVideos) string {
	best := ""
	for _, r := range v.Results {
		if r.Site != "YouTube" || r.Type != "Trailer" || r.Key == "" {
			continue
		}
		url := "https://www.youtube.com/watch?v=" + r.Key
		if r.Official {
			return url
		}
		if best == "" {
			best = url
		}
	}
	return best
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func MapMovie(t *TMDBMovie) *models.Movie {
	tmdbID := t.ID
	imdb := t.IMDbID
	if imdb == "" {
		imdb = t.ExternalIDs.IMDbID
	}
	m := &models.Movie{
		Content: models.Content{
			Title:         t.Title,
			OriginalTitle: originalTitle(t.OriginalTitle, t.Title),
			Overview:      t.Overview,
			PosterPath:    t.PosterPath,
			BackdropPath:  t.BackdropPath,
			TrailerURL:    trailerURL(t.Videos),
			ReleaseYear:   yearOf(t.ReleaseDate),
			Rating:        roundRating(t.VoteAverage),
			Genres:        genreNames(t.Genres),
			Language:      languages(t.SpokenLanguages, t.OriginalLanguage),
			Director:      directorOf(t.Credits),
			Cast:          castOf(t.Credits),
			TMDbID:        &tmdbID,
			IMDbID:        optString(imdb),
			Type:          models.TypeMovie,
		},
		Runtime: t.Runtime,
	}
	if isAnime(m.Genres, t.OriginalLanguage) {
		m.Type = models.TypeAnime
	}
	return m
}

func MapSeries(t *TMDBShow) *models.Series {
	tmdbID := t.ID
	s := &models.Series{
		Content: models.Content{
			Title:         t.Name,
			OriginalTitle: originalTitle(t.OriginalName, t.Name),
			Overview:      t.Overview,
			PosterPath:    t.PosterPath,
			BackdropPath:  t.BackdropPath,
			TrailerURL:    trailerURL(t.Videos),
			ReleaseYear:   yearOf(t.FirstAirDate),
			Rating:        roundRating(t.VoteAverage),
			Genres:        genreNames(t.Genres),
			Language:      languages(t.SpokenLanguages, t.OriginalLanguage),
			Cast:          castOf(t.Credits),
			TMDbID:        &tmdbID,
			IMDbID:        optString(t.ExternalIDs.IMDbID),
		},
		SeriesStatus: seriesStatus(t.Status),
		Seasons:      []models.Season{},
	}
	if isAnime(s.Genres, t.OriginalLanguage) {
		s.Type = models.TypeAnime
	}
	for _, n := range t.Networks {
		if n.Name != "" {
			s.Networks = append(s.Networks, models.Credit{Name: n.Name, ProfilePath: n.LogoPath})
		}
	}
	for _, c := range t.CreatedBy {
		if c.Name != "" {
			s.Creators = append(s.Creators, models.Credit{Name: c.Name, ProfilePath: c.ProfilePath})
		}
	}
	return s
}

func MapSeason(t *TMDBSeason) models.Season {
	tmdbID := t.ID
	season := models.Season{
		SeasonNumber: t.SeasonNumber,
		Name:         t.Name,
		Overview:     t.Overview,
		PosterPath:   t.PosterPath,
		AirDate:      t.AirDate,
		TMDbID:       &tmdbID,
		Episodes:     make([]models.Episode, 0, len(t.Episodes)),
	}
	for _, e := range t.Episodes {
		epID := e.ID
		title := e.Name
		if title == "" {
			title = "Episode " + cast.ToString(e.EpisodeNumber)
		}
		season.Episodes = append(season.Episodes, models.Episode{
			EpisodeNumber: e.EpisodeNumber,
			Title:         title,
			Overview:      e.Overview,
			StillPath:     e.StillPath,
			AirDate:       e.AirDate,
			Runtime:       e.Runtime,
			Rating:        roundRating(e.VoteAverage),
			Active:        true,
			TMDbID:        &epID,
		})
	}
	return season
}

func originalTitle(orig, title string) string {
	if orig == title {
		return ""
	}
	return orig
}

func roundRating(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return float64(int(v*10+0.5)) / 10
}

func seriesStatus(s string) models.SeriesStatus {
	switch models.SeriesStatus(s) {
	case models.SeriesReturning, models.SeriesEnded, models.SeriesCanceled, models.SeriesInProduction:
		return models.SeriesStatus(s)
	}
	if strings.EqualFold(s, "Cancelled") {
		return models.SeriesCanceled
	}
	if s == "" {
		return ""
	}
	return models.SeriesInProduction
}

func isAnime(genres []string, lang string) bool {
	if lang != "ja" {
		return false
	}
	for _, g := range genres {
		if g == "Animation" {
			return true
		}
	}
	return false
}
