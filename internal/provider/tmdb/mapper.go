package tmdb

import (
	"time"

	"github.com/mmcdole/showsync/internal/domain"
)

const dateLayout = "2006-01-02"

// certificationCountry is the content rating we prefer when a show has several
const certificationCountry = "US"

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MapDetails converts full show details
func MapDetails(d TVDetails) domain.RemoteShow {
	details := domain.ShowDetails{
		Title:         d.Name,
		OriginalTitle: d.OriginalName,
		Summary:       d.Overview,
		Homepage:      d.Homepage,
		Status:        d.Status,
		FirstAired:    parseDate(d.FirstAirDate),
		Rating:        d.VoteAverage,
		Votes:         d.VoteCount,
	}
	if len(d.OriginCountry) > 0 {
		details.Country = d.OriginCountry[0]
	}
	if len(d.EpisodeRunTime) > 0 {
		details.Runtime = d.EpisodeRunTime[0]
	}
	if len(d.Networks) > 0 {
		details.Network = d.Networks[0].Name
		details.NetworkLogoPath = d.Networks[0].LogoPath
	}
	for _, g := range d.Genres {
		details.Genres = append(details.Genres, g.Name)
	}
	if d.ContentRatings != nil {
		details.Certification = pickCertification(d.ContentRatings.Results)
	}

	ids := domain.ShowIDs{TmdbID: d.ID}
	if d.ExternalIDs != nil {
		ids.ImdbID = d.ExternalIDs.IMDBID
	}

	remote := domain.RemoteShow{
		IDs:     ids,
		Details: details,
		Source:  ProviderName,
	}
	if d.Images != nil {
		remote.Images = MapImages(*d.Images)
	}
	return remote
}

func pickCertification(ratings []ContentRating) string {
	for _, r := range ratings {
		if r.Country == certificationCountry {
			return r.Rating
		}
	}
	if len(ratings) > 0 {
		return ratings[0].Rating
	}
	return ""
}

// MapResult converts an abbreviated search or find result
func MapResult(r TVResult) domain.RemoteShow {
	details := domain.ShowDetails{
		Title:         r.Name,
		OriginalTitle: r.OriginalName,
		Summary:       r.Overview,
		FirstAired:    parseDate(r.FirstAirDate),
		Rating:        r.VoteAverage,
		Votes:         r.VoteCount,
	}
	if len(r.OriginCountry) > 0 {
		details.Country = r.OriginCountry[0]
	}
	return domain.RemoteShow{
		IDs:     domain.ShowIDs{TmdbID: r.ID},
		Details: details,
		Source:  ProviderName,
	}
}

// MapImages flattens an image set into typed images
func MapImages(set ImageSet) []domain.ShowImage {
	images := make([]domain.ShowImage, 0, len(set.Posters)+len(set.Backdrops)+len(set.Logos))
	images = appendImages(images, domain.ImageTypePoster, set.Posters)
	images = appendImages(images, domain.ImageTypeBackdrop, set.Backdrops)
	images = appendImages(images, domain.ImageTypeLogo, set.Logos)
	return images
}

func appendImages(dst []domain.ShowImage, t domain.ImageType, src []Image) []domain.ShowImage {
	for _, img := range src {
		dst = append(dst, domain.ShowImage{
			Type:        t,
			Path:        img.FilePath,
			Language:    img.Language,
			Rating:      img.VoteAverage,
			VoteCount:   img.VoteCount,
			Width:       img.Width,
			Height:      img.Height,
			AspectRatio: img.AspectRatio,
		})
	}
	return dst
}
