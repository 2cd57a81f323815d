package domain

// ImageType distinguishes artwork kinds.
type ImageType string

const (
	ImageTypePoster   ImageType = "poster"
	ImageTypeBackdrop ImageType = "backdrop"
	ImageTypeLogo     ImageType = "logo"
)

// ShowImage is a single piece of artwork for a show. Images are owned by
// the provider: a fetch replaces the whole set for a show.
type ShowImage struct {
	ShowID      int64     `json:"show_id"`
	Type        ImageType `json:"type"`
	Path        string    `json:"path"`
	Language    string    `json:"language"`
	Rating      float64   `json:"rating"`
	VoteCount   int       `json:"vote_count"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	AspectRatio float64   `json:"aspect_ratio"`
}

// ShowImages is the image set for one show.
type ShowImages struct {
	ShowID int64       `json:"show_id"`
	Images []ShowImage `json:"images"`
}

// GetID returns the owning show id.
func (s *ShowImages) GetID() int64 { return s.ShowID }

// HighestRated returns the best rated image of the given type, or nil.
// Ties are broken by vote count.
func HighestRated(images []ShowImage, t ImageType) *ShowImage {
	var best *ShowImage
	for i := range images {
		img := &images[i]
		if img.Type != t {
			continue
		}
		if best == nil || img.Rating > best.Rating ||
			(img.Rating == best.Rating && img.VoteCount > best.VoteCount) {
			best = img
		}
	}
	return best
}
