package catalog

import (
	"math"
	"strings"
	"time"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// TrendingScore weighs popularity plus a freshness bonus that decays to zero
// over the first ten days after creation.
func TrendingScore(c *models.Content, now time.Time) float64 {
	days := now.Sub(c.CreatedAt).Hours() / 24
	fresh := math.Max(0, 10-days)
	return float64(c.Views)*0.6 + c.Rating*0.2 + float64(c.Likes)*0.1 + fresh
}

func FeaturedScore(c *models.Content) float64 {
	return c.Rating*0.7 + math.Log(float64(c.Views)+1)*0.3
}

// RelevanceScore ranks a search hit by match strength, ratings, popularity
// and a recency bonus for recent release years.
func RelevanceScore(c *models.Content, term string, now time.Time) float64 {
	t := strings.ToLower(strings.TrimSpace(term))
	title := strings.ToLower(c.Title)
	score := 0.0
	if t != "" && strings.Contains(title, t) {
		score += 100
		if title == t {
			score += 200
		}
		if strings.HasPrefix(title, t) {
			score += 50
		}
	}
	if t != "" && strings.Contains(strings.ToLower(c.Overview), t) {
		score += 20
	}
	score += c.Rating*5 + c.IMDbRating*3 + math.Log(float64(c.Views)+1)*2
	yearsOld := float64(now.Year() - c.ReleaseYear)
	score += math.Max(0, 10-yearsOld)
	return score
}
