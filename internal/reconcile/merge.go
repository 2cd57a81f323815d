// Package reconcile merges remote show data into local records.
package reconcile

import "github.com/mmcdole/showsync/internal/domain"

// MergeShow combines the local record with a fresh remote result:
//   - descriptive fields come from remote
//   - user state comes from local
//   - each external id keeps the local value if set, else takes remote's
//
// A nil local yields the remote show as a new record.
func MergeShow(local *domain.Show, remote domain.RemoteShow) *domain.Show {
	merged := &domain.Show{
		ShowIDs:     remote.IDs,
		ShowDetails: remote.Details,
	}
	merged.Genres = append([]string(nil), remote.Details.Genres...)
	if local == nil {
		merged.ID = 0
		return merged
	}

	merged.ShowIDs = mergeIDs(local.ShowIDs, remote.IDs)
	merged.ShowUserState = local.ShowUserState
	return merged
}

func mergeIDs(local, remote domain.ShowIDs) domain.ShowIDs {
	ids := local
	if ids.TraktID == 0 {
		ids.TraktID = remote.TraktID
	}
	if ids.TmdbID == 0 {
		ids.TmdbID = remote.TmdbID
	}
	if ids.ImdbID == "" {
		ids.ImdbID = remote.ImdbID
	}
	return ids
}
