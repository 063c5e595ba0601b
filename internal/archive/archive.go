package archive

// Package archive provides SQLite-based local persistence for transcripts
// fetched from the server, so past conversations remain readable offline.
// The database is opened lazily and created on first use.
// If opening the DB or executing queries fails, the store falls back to in-memory storage.

import (
	"database/sql"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/Ramjan-Shaikh/trustaudit/internal/api"
	"github.com/Ramjan-Shaikh/trustaudit/internal/logger"
)

// Store archives messages to a local SQLite file.
type Store struct {
	path string

	mu       sync.Mutex
	fallback []api.Message // in-memory fallback

	dbOnce  sync.Once
	db      *sql.DB
	initErr error
}

// New returns a store backed by the SQLite file at path. The file is not
// touched until the first Save or List.
func New(path string) *Store {
	return &Store{path: path}
}

// initDB lazily opens the SQLite database and creates the messages table if it doesn't exist.
func (s *Store) initDB() {
	var err error
	s.db, err = sql.Open("sqlite", "file:"+s.path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory archive", "error", err)
		return
	}
	if _, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        message_id TEXT,
        session_id TEXT,
        role TEXT,
        content TEXT,
        metadata TEXT,
        created_at DATETIME
    );`); err != nil {
		s.initErr = err
		logger.L.Warn("sqlite table creation failed; using in-memory archive", "error", err)
		return
	}
	logger.L.Info("sqlite archive DB initialized", "path", s.path)
}

// Save persists a message to the SQLite database when available and always keeps
// an in-memory copy as fallback. Optimistic placeholder messages are never
// archived; only server-confirmed rows are worth keeping.
func (s *Store) Save(msg api.Message) {
	if msg.ID.IsLocal() {
		return
	}
	s.dbOnce.Do(s.initDB)

	if s.initErr == nil && s.db != nil {
		_, err := s.db.Exec(`INSERT INTO messages (message_id, session_id, role, content, metadata, created_at) VALUES (?,?,?,?,?,?);`,
			string(msg.ID), msg.SessionID, msg.Role, msg.Content, msg.Metadata, msg.Timestamp.Time)
		if err != nil {
			logger.L.Error("failed to store message in sqlite; falling back to memory", "error", err)
		}
	}

	s.mu.Lock()
	s.fallback = append(s.fallback, msg)
	s.mu.Unlock()
}

// SaveAll archives every message of a transcript.
func (s *Store) SaveAll(msgs []api.Message) {
	for _, m := range msgs {
		s.Save(m)
	}
}

// List returns all archived messages of a session in chronological order.
func (s *Store) List(sessionID string) []api.Message {
	s.dbOnce.Do(s.initDB)
	var out []api.Message
	if s.initErr == nil && s.db != nil {
		rows, err := s.db.Query(`SELECT message_id, session_id, role, content, metadata, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var m api.Message
				var id string
				var ts sql.NullTime
				if err := rows.Scan(&id, &m.SessionID, &m.Role, &m.Content, &m.Metadata, &ts); err == nil {
					m.ID = api.MessageID(id)
					if ts.Valid {
						m.Timestamp = api.Time{Time: ts.Time}
					}
					out = append(out, m)
				}
			}
			return out
		}
	}
	s.mu.Lock()
	for _, m := range s.fallback {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	return out
}

// Close releases the underlying database handle if one was opened.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
