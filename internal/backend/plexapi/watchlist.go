package plexapi

import (
	"context"
	"net/url"
	"strconv"

	"plexcache/internal/media"
)

// ListWatchlist reads the account watchlist from plex.tv and resolves each
// entry against the local library by guid. Entries the server does not carry
// resolve to nothing and are skipped quietly: a watchlist full of unreleased
// titles is normal, not an error.
func (c *Client) ListWatchlist(ctx context.Context, limit int) ([]media.Candidate, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("X-Plex-Container-Size", strconv.Itoa(limit))
	}
	container, err := c.get(ctx, c.discoverURL, "/library/sections/watchlist/all", query)
	if err != nil {
		return nil, err
	}

	var candidates []media.Candidate
	for _, entry := range container.Videos {
		if entry.GUID == "" {
			continue
		}
		local, err := c.resolveGUID(ctx, entry.GUID)
		if err != nil {
			return nil, err
		}
		if local == nil {
			c.logger.Debug("watchlist entry not in library", "title", entry.Title, "guid", entry.GUID)
			continue
		}
		kind := local.kind()
		if kind == 0 {
			continue
		}
		itemID, _ := strconv.ParseInt(local.RatingKey, 10, 64)
		for _, file := range local.files() {
			candidates = append(candidates, media.Candidate{
				Path:     file,
				ItemID:   itemID,
				Title:    local.displayTitle(),
				Kind:     kind,
				Library:  local.LibrarySectionTitle,
				Season:   local.ParentIndex,
				Episode:  local.Index,
				SortTime: unixTime(local.AddedAt),
			})
		}
		if limit > 0 && len(candidates) >= limit {
			candidates = candidates[:limit]
			break
		}
	}
	return candidates, nil
}

// resolveGUID finds the local library item carrying the global identifier, or
// nil when the server has no copy.
func (c *Client) resolveGUID(ctx context.Context, guid string) (*video, error) {
	query := url.Values{}
	query.Set("guid", guid)
	container, err := c.get(ctx, c.baseURL, "/library/all", query)
	if err != nil {
		return nil, err
	}
	for i := range container.Videos {
		if len(container.Videos[i].files()) > 0 {
			return &container.Videos[i], nil
		}
	}
	return nil, nil
}
