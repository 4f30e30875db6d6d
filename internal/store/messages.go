package store

import (
	"context"
	"database/sql"
	"time"
)

type MessagesRepo struct{ conn *sql.DB }

// StoredMessage is one history row. Content is text only; multimodal inputs
// arrive here already flattened to placeholders.
type StoredMessage struct {
	Role    string
	Content string
}

// Append adds one row to the session's history. Rows are append-only and
// each insert is a single atomic statement, so concurrent appends never
// interleave mid-row.
func (r *MessagesRepo) Append(ctx context.Context, sessionID, role, content string) error {
	_, err := r.conn.ExecContext(ctx, `
INSERT INTO messages (session_id, role, content, timestamp)
VALUES (?, ?, ?, ?)
`, sessionID, role, content, fmtTime(time.Now()))
	return err
}

// History returns the session's messages in insertion order. The id
// tiebreak keeps same-millisecond rows stable.
func (r *MessagesRepo) History(ctx context.Context, sessionID string) ([]StoredMessage, error) {
	rows, err := r.conn.QueryContext(ctx, `
SELECT role, content FROM messages WHERE session_id = ? ORDER BY timestamp ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
