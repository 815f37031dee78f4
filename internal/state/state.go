// Package state persists per-URI playback positions so a reopened video
// resumes where it left off.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/llehouerou/reel/internal/db"
)

const (
	appName      = "reel"
	dbFileName   = "reel.db"
	saveDebounce = 500 * time.Millisecond

	// endSlack: positions this close to the end are discarded so a
	// finished video restarts from zero instead of resuming at EOS.
	endSlack = 5 * time.Second
)

type pendingSave struct {
	uri      string
	position time.Duration
	duration time.Duration
}

// Store is a sqlite-backed resume-position store. Saves are debounced so
// per-tick updates don't hammer the database.
type Store struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *pendingSave
}

// Open opens (and if necessary creates) the store at the default xdg
// data path.
func Open() (*Store, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the store at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Store{db: sqlDB}, nil
}

// Close flushes any pending save and closes the database.
func (s *Store) Close() error {
	s.saveMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	pending := s.pending
	s.pending = nil
	s.saveMu.Unlock()

	if pending != nil {
		_ = s.flush(*pending)
	}

	return s.db.Close()
}

// SavePosition records the playback position for a URI, debounced.
// Positions within endSlack of the duration clear the saved entry.
func (s *Store) SavePosition(uri string, position, duration time.Duration) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.pending = &pendingSave{uri: uri, position: position, duration: duration}

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}

	s.saveTimer = time.AfterFunc(saveDebounce, func() {
		s.saveMu.Lock()
		pending := s.pending
		s.pending = nil
		s.saveMu.Unlock()

		if pending != nil {
			_ = s.flush(*pending)
		}
	})
}

// GetPosition returns the saved position for a URI, with ok=false when
// none is stored.
func (s *Store) GetPosition(uri string) (time.Duration, bool) {
	var nanos int64
	err := s.db.QueryRow(
		`SELECT position_ns FROM resume_positions WHERE uri = ?`, uri,
	).Scan(&nanos)
	if err != nil {
		return 0, false
	}
	return time.Duration(nanos), true
}

// Forget removes the saved position for a URI.
func (s *Store) Forget(uri string) error {
	_, err := s.db.Exec(`DELETE FROM resume_positions WHERE uri = ?`, uri)
	return err
}

func (s *Store) flush(p pendingSave) error {
	// Near-end or degenerate positions mean "start over next time".
	if p.position <= 0 || (p.duration > 0 && p.duration-p.position <= endSlack) {
		return s.Forget(p.uri)
	}

	return db.WithTx(s.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO resume_positions (uri, position_ns, duration_ns, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(uri) DO UPDATE SET
				position_ns = excluded.position_ns,
				duration_ns = excluded.duration_ns,
				updated_at = excluded.updated_at`,
			p.uri, p.position.Nanoseconds(), p.duration.Nanoseconds(),
			time.Now().Unix(),
		)
		return err
	})
}
