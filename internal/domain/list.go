package domain

import "time"

// ListName identifies a list of shows kept locally.
type ListName string

const (
	ListTrending    ListName = "trending"
	ListRecommended ListName = "recommended"
	ListWatched     ListName = "watched"
	ListFollowed    ListName = "followed"
)

// ListEntry is the membership of a show in a list.
type ListEntry struct {
	List      ListName  `json:"list"`
	ShowID    int64     `json:"show_id"`
	Page      int       `json:"page"`     // 0-based page the entry was fetched on
	Position  int       `json:"position"` // Position within the whole list
	Watchers  int       `json:"watchers"` // Trending only
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryWithShow is a read-only join of a list entry with its show and
// images. It is computed on every read and never stored.
type EntryWithShow struct {
	Entry  ListEntry
	Show   Show
	Images []ShowImage
}

// Poster returns the highest rated poster, or nil.
func (e EntryWithShow) Poster() *ShowImage {
	return HighestRated(e.Images, ImageTypePoster)
}

// Backdrop returns the highest rated backdrop, or nil.
func (e EntryWithShow) Backdrop() *ShowImage {
	return HighestRated(e.Images, ImageTypeBackdrop)
}
