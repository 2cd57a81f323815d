package tmdb

// TVDetails is the response of /tv/{id} with external_ids, images and
// content_ratings appended
type TVDetails struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	OriginalName   string         `json:"original_name"`
	Overview       string         `json:"overview"`
	Homepage       string         `json:"homepage"`
	Status         string         `json:"status"`
	FirstAirDate   string         `json:"first_air_date"` // YYYY-MM-DD, may be empty
	EpisodeRunTime []int          `json:"episode_run_time"`
	OriginCountry  []string       `json:"origin_country"`
	Genres         []Genre        `json:"genres"`
	Networks       []Network      `json:"networks"`
	VoteAverage    float64        `json:"vote_average"`
	VoteCount      int            `json:"vote_count"`
	ExternalIDs    *ExternalIDs   `json:"external_ids,omitempty"`
	Images         *ImageSet      `json:"images,omitempty"`
	ContentRatings *RatingResults `json:"content_ratings,omitempty"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Network struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LogoPath string `json:"logo_path"`
}

type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
	TVDBID int    `json:"tvdb_id"`
}

// ImageSet is the response of /tv/{id}/images
type ImageSet struct {
	ID        int     `json:"id"`
	Posters   []Image `json:"posters"`
	Backdrops []Image `json:"backdrops"`
	Logos     []Image `json:"logos"`
}

type Image struct {
	FilePath    string  `json:"file_path"`
	Language    string  `json:"iso_639_1"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

type RatingResults struct {
	Results []ContentRating `json:"results"`
}

type ContentRating struct {
	Country string `json:"iso_3166_1"`
	Rating  string `json:"rating"`
}

// SearchResponse is a page of /search/tv
type SearchResponse struct {
	Page         int        `json:"page"`
	TotalResults int        `json:"total_results"`
	TotalPages   int        `json:"total_pages"`
	Results      []TVResult `json:"results"`
}

// TVResult is the abbreviated show used in search and find results
type TVResult struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	OriginalName  string   `json:"original_name"`
	Overview      string   `json:"overview"`
	FirstAirDate  string   `json:"first_air_date"`
	OriginCountry []string `json:"origin_country"`
	VoteAverage   float64  `json:"vote_average"`
	VoteCount     int      `json:"vote_count"`
	PosterPath    string   `json:"poster_path"`
	BackdropPath  string   `json:"backdrop_path"`
}

// FindResponse is the response of /find/{external_id}
type FindResponse struct {
	TVResults []TVResult `json:"tv_results"`
}
