package subscription

import (
	"database/sql"
	"errors"
	"time"

	"moviepilot/internal/media"
)

const subscriptionColumns = "id, name, year, season, kind, tmdb_id, imdb_id, keyword, state, missing_episodes, poster, username, created_at, updated_at"

func scanSubscription(scanner interface{ Scan(dest ...any) error }) (*Subscription, error) {
	var (
		sub        Subscription
		kind       string
		state      string
		imdbID     sql.NullString
		keyword    sql.NullString
		poster     sql.NullString
		username   sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&sub.ID,
		&sub.Name,
		&sub.Year,
		&sub.Season,
		&kind,
		&sub.TMDBID,
		&imdbID,
		&keyword,
		&state,
		&sub.MissingEpisodes,
		&poster,
		&username,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	sub.Kind = media.Kind(kind)
	sub.State = State(state)
	sub.IMDbID = imdbID.String
	sub.Keyword = keyword.String
	sub.Poster = poster.String
	sub.Username = username.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		sub.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		sub.UpdatedAt = updated
	}
	return &sub, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
