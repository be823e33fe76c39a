package metadata

type tmdbNamed struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tmdbLanguage struct {
	ISO6391     string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
}

type tmdbCredits struct {
	Cast []struct {
		Name        string `json:"name"`
		Character   string `json:"character"`
		ProfilePath string `json:"profile_path"`
		Order       int    `json:"order"`
	} `json:"cast"`
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

type tmdbVideos struct {
	Results []struct {
		Type     string `json:"type"`
		Site     string `json:"site"`
		Key      string `json:"key"`
		Official bool   `json:"official"`
	} `json:"results"`
}

type tmdbExternalIDs struct {
	IMDbID string `json:"imdb_id"`
}

type TMDBMovie struct {
	ID               int             `json:"id"`
	Title            string          `json:"title"`
	OriginalTitle    string          `json:"original_title"`
	Overview         string          `json:"overview"`
	PosterPath       string          `json:"poster_path"`
	BackdropPath     string          `json:"backdrop_path"`
	ReleaseDate      string          `json:"release_date"`
	Runtime          int             `json:"runtime"`
	VoteAverage      float64         `json:"vote_average"`
	IMDbID           string          `json:"imdb_id"`
	OriginalLanguage string          `json:"original_language"`
	SpokenLanguages  []tmdbLanguage  `json:"spoken_languages"`
	Genres           []tmdbNamed     `json:"genres"`
	Credits          tmdbCredits     `json:"credits"`
	Videos           tmdbVideos      `json:"videos"`
	ExternalIDs      tmdbExternalIDs `json:"external_ids"`
}

type TMDBShow struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	OriginalName     string          `json:"original_name"`
	Overview         string          `json:"overview"`
	PosterPath       string          `json:"poster_path"`
	BackdropPath     string          `json:"backdrop_path"`
	FirstAirDate     string          `json:"first_air_date"`
	VoteAverage      float64         `json:"vote_average"`
	Status           string          `json:"status"`
	OriginalLanguage string          `json:"original_language"`
	SpokenLanguages  []tmdbLanguage  `json:"spoken_languages"`
	Genres           []tmdbNamed     `json:"genres"`
	Networks         []struct {
		Name     string `json:"name"`
		LogoPath string `json:"logo_path"`
	} `json:"networks"`
	CreatedBy []struct {
		Name        string `json:"name"`
		ProfilePath string `json:"profile_path"`
	} `json:"created_by"`
	Seasons []struct {
		ID           int    `json:"id"`
		SeasonNumber int    `json:"season_number"`
		Name         string `json:"name"`
	} `json:"seasons"`
	Credits     tmdbCredits     `json:"credits"`
	Videos      tmdbVideos      `json:"videos"`
	ExternalIDs tmdbExternalIDs `json:"external_ids"`
}

type TMDBSeason struct {
	ID           int    `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	AirDate      string `json:"air_date"`
	Episodes     []struct {
		ID            int     `json:"id"`
		EpisodeNumber int     `json:"episode_number"`
		Name          string  `json:"name"`
		Overview      string  `json:"overview"`
		StillPath     string  `json:"still_path"`
		AirDate       string  `json:"air_date"`
		Runtime       int     `json:"runtime"`
		VoteAverage   float64 `json:"vote_average"`
	} `json:"episodes"`
}
