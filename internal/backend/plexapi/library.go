package plexapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"plexcache/internal/backend"
	"plexcache/internal/media"
)

// QueryContinueWatching reads the server's on-deck rail: in-progress movies
// plus the next unwatched episode of each started show. The live API scopes
// everything to the token's account, so the account argument only labels log
// lines.
func (c *Client) QueryContinueWatching(ctx context.Context, account media.Account, limit int) ([]media.Candidate, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("X-Plex-Container-Size", strconv.Itoa(limit))
	}
	container, err := c.get(ctx, c.baseURL, "/library/onDeck", query)
	if err != nil {
		return nil, err
	}

	var candidates []media.Candidate
	for _, v := range container.Videos {
		kind := v.kind()
		if kind == 0 {
			continue
		}
		itemID, _ := strconv.ParseInt(v.RatingKey, 10, 64)
		for _, file := range v.files() {
			candidate := media.Candidate{
				Path:     file,
				ItemID:   itemID,
				Title:    v.displayTitle(),
				Kind:     kind,
				Library:  v.LibrarySectionTitle,
				Season:   v.ParentIndex,
				Episode:  v.Index,
				SortTime: unixTime(v.LastViewedAt),
			}
			candidates = append(candidates, candidate)
			c.logger.Debug("continue watching candidate",
				"account", account.Name,
				"title", candidate.Title,
				"kind", candidate.Kind.String(),
				"season", candidate.Season,
				"episode", candidate.Episode,
				"file", candidate.Path,
			)
		}
		if limit > 0 && len(candidates) >= limit {
			candidates = candidates[:limit]
			break
		}
	}
	return candidates, nil
}

// ListWatchedFiles walks every movie and show section and returns the files
// backing items this token's account has completed. A section that fails to
// list is logged and skipped; the rest of the walk continues.
func (c *Client) ListWatchedFiles(ctx context.Context) ([]media.WatchedFile, error) {
	sections, err := c.librarySections(ctx)
	if err != nil {
		return nil, err
	}

	var watched []media.WatchedFile
	for _, section := range sections {
		itemType := media.KindMovie
		if section.Type == "show" {
			itemType = media.KindEpisode
		}
		query := url.Values{}
		query.Set("type", strconv.Itoa(int(itemType)))
		container, err := c.get(ctx, c.baseURL, "/library/sections/"+section.Key+"/all", query)
		if err != nil {
			c.logger.Warn("skipping library section",
				"section", section.Title,
				"error", backend.Wrap(backend.ErrScoped, fmt.Sprintf("list section %s", section.Title), err),
			)
			continue
		}
		for _, v := range container.Videos {
			if v.ViewCount == 0 || v.kind() == 0 {
				continue
			}
			itemID, _ := strconv.ParseInt(v.RatingKey, 10, 64)
			library := v.LibrarySectionTitle
			if library == "" {
				library = section.Title
			}
			for _, file := range v.files() {
				watched = append(watched, media.WatchedFile{
					Path:         file,
					ItemID:       itemID,
					Title:        v.displayTitle(),
					Kind:         v.kind(),
					Library:      library,
					AddedAt:      unixTime(v.AddedAt),
					LastViewedAt: unixTime(v.LastViewedAt),
				})
			}
		}
	}
	return watched, nil
}

// ListPlayingFiles returns the file paths behind active playback sessions.
func (c *Client) ListPlayingFiles(ctx context.Context) (map[string]struct{}, error) {
	container, err := c.get(ctx, c.baseURL, "/status/sessions", nil)
	if err != nil {
		return nil, err
	}
	playing := make(map[string]struct{})
	for _, v := range container.Videos {
		for _, file := range v.files() {
			playing[file] = struct{}{}
		}
	}
	return playing, nil
}

type section struct {
	Key   string
	Type  string
	Title string
}

func (c *Client) librarySections(ctx context.Context) ([]section, error) {
	container, err := c.get(ctx, c.baseURL, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	var sections []section
	for _, d := range container.Directories {
		if d.Type != "movie" && d.Type != "show" {
			continue
		}
		sections = append(sections, section{Key: d.Key, Type: d.Type, Title: d.Title})
	}
	return sections, nil
}
