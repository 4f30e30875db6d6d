package store

import (
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Timestamps are stored as fixed-width UTC strings so lexicographic and
// chronological order agree in SQL comparisons.
const timeLayout = "2006-01-02 15:04:05.000"

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

type Store struct {
	conn *sql.DB

	sessions *SessionsRepo
	messages *MessagesRepo
}

func New(conn *sql.DB) *Store {
	s := &Store{conn: conn}
	s.sessions = &SessionsRepo{conn: conn}
	s.messages = &MessagesRepo{conn: conn}
	return s
}

func (s *Store) Sessions() *SessionsRepo { return s.sessions }
func (s *Store) Messages() *MessagesRepo { return s.messages }
