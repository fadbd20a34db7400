package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moviepilot/internal/media"
)

// Add inserts sub in state N and returns the stored row.
func (s *Store) Add(ctx context.Context, sub Subscription) (*Subscription, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	if sub.Name == "" {
		return nil, errors.New("subscription name is required")
	}
	if sub.State == "" {
		sub.State = StateNew
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		`INSERT INTO subscriptions (
            name, year, season, kind, tmdb_id, imdb_id, keyword, state,
            missing_episodes, poster, username, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Name,
		sub.Year,
		sub.Season,
		string(sub.Kind),
		sub.TMDBID,
		nullableString(sub.IMDbID),
		nullableString(sub.Keyword),
		string(sub.State),
		sub.MissingEpisodes,
		nullableString(sub.Poster),
		nullableString(sub.Username),
		timestamp,
		timestamp,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a subscription by id; it returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, id int64) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// FindByIdentity returns the subscription pinned to (kind, tmdbID, season),
// or nil. Movie and TV ids are separate TMDB namespaces.
func (s *Store) FindByIdentity(ctx context.Context, kind media.Kind, tmdbID int64, season int) (*Subscription, error) {
	if tmdbID <= 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE tmdb_id = ? AND kind = ? AND season = ? ORDER BY id LIMIT 1`,
		tmdbID, string(kind), season)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return sub, nil
}

// List returns subscriptions in the given states, oldest first. No states
// lists everything.
func (s *Store) List(ctx context.Context, states ...State) ([]*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, state := range states {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		query += ` WHERE state IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Update applies the non-nil fields of u. Updating a missing row is not an
// error.
func (s *Store) Update(ctx context.Context, id int64, u Update) error {
	if u.IsEmpty() {
		return nil
	}
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	if u.State != nil {
		sets = append(sets, "state = ?")
		args = append(args, string(*u.State))
	}
	if u.MissingEpisodes != nil {
		sets = append(sets, "missing_episodes = ?")
		args = append(args, *u.MissingEpisodes)
	}
	if u.TMDBID != nil {
		sets = append(sets, "tmdb_id = ?")
		args = append(args, *u.TMDBID)
	}
	if u.IMDbID != nil {
		sets = append(sets, "imdb_id = ?")
		args = append(args, nullableString(*u.IMDbID))
	}
	if u.Poster != nil {
		sets = append(sets, "poster = ?")
		args = append(args, nullableString(*u.Poster))
	}
	if u.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *u.Year)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id)

	if _, err := s.execWithRetry(ctx, `UPDATE subscriptions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of subscriptions per state.
func (s *Store) Count(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM subscriptions GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	defer rows.Close()
	counts := make(map[State]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[State(state)] = n
	}
	return counts, rows.Err()
}
