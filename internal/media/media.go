package media

import "time"

// Kind distinguishes the two item types the selector cares about. The numeric
// values match Plex's metadata_type column so both backends can share them.
type Kind int

const (
	KindMovie   Kind = 1
	KindEpisode Kind = 4
)

// Plex library_sections.section_type values for the library kinds we scan.
const (
	SectionTypeMovie = 1
	SectionTypeShow  = 2
)

func (k Kind) String() string {
	switch k {
	case KindMovie:
		return "movie"
	case KindEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// Account is a server account as seen by a backend. LastActivity is the most
// recent view timestamp across the account's records and drives query order
// only, never correctness.
type Account struct {
	ID           int64
	Name         string
	LastActivity time.Time
}

// Candidate is one continue-watching result for a single account: a file the
// account is mid-way through or poised to watch next.
type Candidate struct {
	Path     string
	ItemID   int64
	Title    string
	Kind     Kind
	Library  string
	Season   int
	Episode  int
	SortTime time.Time
}

// WatchedFile is a demotion-side candidate: a file backing an item that at
// least one account has completed. AddedAt feeds the new-content grace window
// and LastViewedAt is the max viewed-at across all accounts.
type WatchedFile struct {
	Path         string
	ItemID       int64
	Title        string
	Kind         Kind
	Library      string
	AddedAt      time.Time
	LastViewedAt time.Time
}
