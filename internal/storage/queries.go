package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
)

// ViolationHistory returns a player's recorded violations, newest first.
func (c *Client) ViolationHistory(ctx context.Context, playerID uuid.UUID, limit int) ([]check.Violation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := c.Query(ctx, `
		SELECT id, player_id, player_name, check_name, category,
		       level, detail, ping_millis, punished, created_at
		FROM violations
		WHERE player_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, playerID, limit)
	if err != nil {
		return nil, WrapQueryError("ViolationHistory", "violations", err)
	}
	defer rows.Close()

	var out []check.Violation
	for rows.Next() {
		var (
			v        check.Violation
			category string
			level    uint16
			ping     uint16
		)
		if err := rows.Scan(&v.ID, &v.PlayerID, &v.PlayerName, &v.CheckName, &category,
			&level, &v.Detail, &ping, &v.Punished, &v.Timestamp); err != nil {
			return nil, WrapQueryError("Scan", "violations", err)
		}
		v.Category = check.Category(category)
		v.Level = int(level)
		v.PingMillis = int(ping)
		out = append(out, v)
	}

	return out, nil
}

// Offender summarizes one player's violation volume over a window.
type Offender struct {
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Total      uint64    `json:"total"`
	Punished   uint64    `json:"punished"`
}

// TopOffenders returns the players with the most violations since the given
// time.
func (c *Client) TopOffenders(ctx context.Context, since time.Time, limit int) ([]Offender, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.Query(ctx, `
		SELECT player_id, any(player_name), count() AS total, countIf(punished)
		FROM violations
		WHERE created_at >= ?
		GROUP BY player_id
		ORDER BY total DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, WrapQueryError("TopOffenders", "violations", err)
	}
	defer rows.Close()

	var out []Offender
	for rows.Next() {
		var o Offender
		if err := rows.Scan(&o.PlayerID, &o.PlayerName, &o.Total, &o.Punished); err != nil {
			return nil, WrapQueryError("Scan", "violations", err)
		}
		out = append(out, o)
	}

	return out, nil
}
