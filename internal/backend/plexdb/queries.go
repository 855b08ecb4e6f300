package plexdb

import (
	"context"
	"database/sql"
	"fmt"

	"plexcache/internal/media"
)

const accountsQuery = `
SELECT a.id, a.name, MAX(miv.viewed_at) AS last_view
FROM accounts a
LEFT JOIN metadata_item_views miv ON miv.account_id = a.id
WHERE a.id > 0
GROUP BY a.id, a.name
ORDER BY last_view DESC`

// continueWatchingQuery classifies one account's movies and episodes.
//
// An item qualifies when the account has a nonzero view offset against it, or
// when it is the next unwatched episode of a season the account has started.
// "Next unwatched" is a per-season group minimum: among the season's episodes
// with no view record for this account, the one with the lowest index.
//
// Sort order follows the server's continue-watching rail: episodes sort by
// the season's most recent viewing activity, movies by their own last view
// (falling back to added-at).
//
// View state joins on guid, not item id, because Plex shares view records
// across accounts through the global content identifier.
const continueWatchingQuery = `
WITH started_seasons AS (
    SELECT DISTINCT mi.parent_id AS season_id
    FROM metadata_items mi
    JOIN metadata_item_views miv ON miv.guid = mi.guid AND miv.account_id = ?
    WHERE mi.metadata_type = 4 AND mi.parent_id IS NOT NULL
),
next_unwatched AS (
    SELECT mi.parent_id AS season_id, MIN(mi."index") AS episode_index
    FROM metadata_items mi
    LEFT JOIN metadata_item_views miv ON miv.guid = mi.guid AND miv.account_id = ?
    WHERE mi.metadata_type = 4
      AND miv.viewed_at IS NULL
      AND mi.parent_id IN (SELECT season_id FROM started_seasons)
    GROUP BY mi.parent_id
),
season_activity AS (
    SELECT mi.parent_id AS season_id,
           MAX(COALESCE(mis.last_viewed_at, miv.viewed_at)) AS last_activity
    FROM metadata_items mi
    LEFT JOIN metadata_item_views miv ON miv.guid = mi.guid AND miv.account_id = ?
    LEFT JOIN metadata_item_settings mis ON mis.guid = mi.guid AND mis.account_id = ?
    WHERE mi.metadata_type = 4
    GROUP BY mi.parent_id
)
SELECT
    mp.file,
    mi.id,
    mi.title,
    mi.metadata_type,
    ls.name,
    COALESCE(parent."index", 0) AS season_number,
    COALESCE(mi."index", 0) AS episode_number,
    CASE WHEN mi.metadata_type = 4
         THEN (SELECT sa.last_activity FROM season_activity sa WHERE sa.season_id = mi.parent_id)
         ELSE COALESCE(mis.last_viewed_at, miv.viewed_at, mi.added_at)
    END AS sort_time
FROM metadata_items mi
JOIN library_sections ls ON ls.id = mi.library_section_id
JOIN media_items med ON med.metadata_item_id = mi.id
JOIN media_parts mp ON mp.media_item_id = med.id
LEFT JOIN metadata_item_views miv ON miv.guid = mi.guid AND miv.account_id = ?
LEFT JOIN metadata_item_settings mis ON mis.guid = mi.guid AND mis.account_id = ?
LEFT JOIN metadata_items parent ON parent.id = mi.parent_id
WHERE mp.file IS NOT NULL
  AND mi.metadata_type IN (1, 4)
  AND ls.section_type IN (1, 2)
  AND (
        COALESCE(mis.view_offset, 0) > 0
        OR (
            mi.metadata_type = 4
            AND miv.viewed_at IS NULL
            AND EXISTS (
                SELECT 1 FROM next_unwatched nu
                WHERE nu.season_id = mi.parent_id AND nu.episode_index = mi."index"
            )
        )
  )
GROUP BY mp.file
ORDER BY sort_time DESC
LIMIT ?`

// watchedFilesQuery lists every file backing an item some account completed.
// Watched-ness is cross-account: one view record anywhere marks the file.
const watchedFilesQuery = `
SELECT
    mp.file,
    mi.id,
    mi.title,
    mi.metadata_type,
    ls.name,
    COALESCE(mi.added_at, 0),
    MAX(miv.viewed_at) AS last_viewed_at
FROM metadata_items mi
JOIN metadata_item_views miv ON miv.guid = mi.guid
JOIN library_sections ls ON ls.id = mi.library_section_id
JOIN media_items med ON med.metadata_item_id = mi.id
JOIN media_parts mp ON mp.media_item_id = med.id
WHERE miv.viewed_at IS NOT NULL
  AND mp.file IS NOT NULL
  AND mi.metadata_type IN (1, 4)
  AND ls.section_type IN (1, 2)
GROUP BY mi.id, mp.file
ORDER BY last_viewed_at DESC`

// QueryContinueWatching returns the account's in-progress items and next
// unwatched episodes, most recent activity first. limit <= 0 removes the
// bound.
func (s *Snapshot) QueryContinueWatching(ctx context.Context, account media.Account, limit int) ([]media.Candidate, error) {
	if limit <= 0 {
		limit = -1
	}
	id := account.ID
	rows, err := s.db.QueryContext(ctx, continueWatchingQuery, id, id, id, id, id, id, limit)
	if err != nil {
		return nil, fmt.Errorf("query continue watching for account %d: %w", id, err)
	}
	defer rows.Close()

	var candidates []media.Candidate
	for rows.Next() {
		var (
			file     string
			itemID   int64
			title    sql.NullString
			kind     int
			library  string
			season   int
			episode  int
			sortTime sql.NullInt64
		)
		if err := rows.Scan(&file, &itemID, &title, &kind, &library, &season, &episode, &sortTime); err != nil {
			return nil, fmt.Errorf("scan continue watching row: %w", err)
		}
		candidate := media.Candidate{
			Path:     file,
			ItemID:   itemID,
			Title:    title.String,
			Kind:     media.Kind(kind),
			Library:  library,
			Season:   season,
			Episode:  episode,
			SortTime: unixTime(sortTime),
		}
		candidates = append(candidates, candidate)
		s.logger.Debug("continue watching candidate",
			"account", account.Name,
			"title", candidate.Title,
			"kind", candidate.Kind.String(),
			"season", candidate.Season,
			"episode", candidate.Episode,
			"file", candidate.Path,
		)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate continue watching rows: %w", err)
	}
	return candidates, nil
}

// ListWatchedFiles returns demotion-side candidates: files whose items have a
// completed view from any account, newest view first.
func (s *Snapshot) ListWatchedFiles(ctx context.Context) ([]media.WatchedFile, error) {
	rows, err := s.db.QueryContext(ctx, watchedFilesQuery)
	if err != nil {
		return nil, fmt.Errorf("query watched files: %w", err)
	}
	defer rows.Close()

	var watched []media.WatchedFile
	for rows.Next() {
		var (
			file       string
			itemID     int64
			title      sql.NullString
			kind       int
			library    string
			addedAt    sql.NullInt64
			lastViewed sql.NullInt64
		)
		if err := rows.Scan(&file, &itemID, &title, &kind, &library, &addedAt, &lastViewed); err != nil {
			return nil, fmt.Errorf("scan watched file row: %w", err)
		}
		watched = append(watched, media.WatchedFile{
			Path:         file,
			ItemID:       itemID,
			Title:        title.String,
			Kind:         media.Kind(kind),
			Library:      library,
			AddedAt:      unixTime(addedAt),
			LastViewedAt: unixTime(lastViewed),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watched file rows: %w", err)
	}
	return watched, nil
}
