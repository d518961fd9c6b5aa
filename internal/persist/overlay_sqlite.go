// Package persist stores voxel edits and chunk snapshots on disk. The
// world itself is procedural; only the overlay of user edits and any
// exported snapshots need to survive a restart.
package persist

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/splashdust/bevy-voxel-world/internal/voxel"
)

// OverlayStore persists voxel edits in a sqlite database. Writes are
// queued to a single writer goroutine so the tick thread never blocks
// on disk; reads happen only at load time.
type OverlayStore struct {
	db *sql.DB

	ch   chan editRow
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type editRow struct {
	c voxel.Coord
	v voxel.Voxel
}

func OpenOverlayStore(path string) (*OverlayStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty overlay db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS edits (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		z INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		material INTEGER NOT NULL,
		PRIMARY KEY (x, y, z)
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &OverlayStore{
		db: db,
		ch: make(chan editRow, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// Record queues one edit for persistence. An unset voxel deletes the
// row, handing the coordinate back to the generator on next load. Never
// blocks; when the writer falls behind the edit is dropped and counted.
func (s *OverlayStore) Record(c voxel.Coord, v voxel.Voxel) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- editRow{c: c, v: v}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many edits were discarded because the writer
// queue was full.
func (s *OverlayStore) Dropped() int64 {
	return s.dropped.Load()
}

// LoadAll streams every persisted edit to fn.
func (s *OverlayStore) LoadAll(fn func(c voxel.Coord, v voxel.Voxel)) error {
	rows, err := s.db.Query("SELECT x, y, z, kind, material FROM edits")
	if err != nil {
		return fmt.Errorf("load edits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var x, y, z, kind, material int
		if err := rows.Scan(&x, &y, &z, &kind, &material); err != nil {
			return fmt.Errorf("scan edit: %w", err)
		}
		fn(
			voxel.Coord{X: x, Y: y, Z: z},
			voxel.Voxel{Kind: voxel.Kind(kind), Material: uint8(material)},
		)
	}
	return rows.Err()
}

// Count returns the number of persisted edits.
func (s *OverlayStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM edits").Scan(&n)
	return n, err
}

func (s *OverlayStore) loop() {
	for row := range s.ch {
		batch := []editRow{row}
		// Fold in whatever else is already queued so one transaction
		// covers the burst.
	gather:
		for len(batch) < 512 {
			select {
			case r, ok := <-s.ch:
				if !ok {
					break gather
				}
				batch = append(batch, r)
			default:
				break gather
			}
		}
		s.writeBatch(batch)
	}
}

func (s *OverlayStore) writeBatch(batch []editRow) {
	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	for _, row := range batch {
		if row.v.IsUnset() {
			_, err = tx.Exec(
				"DELETE FROM edits WHERE x = ? AND y = ? AND z = ?",
				row.c.X, row.c.Y, row.c.Z,
			)
		} else {
			_, err = tx.Exec(
				`INSERT INTO edits (x, y, z, kind, material) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(x, y, z) DO UPDATE SET kind = excluded.kind, material = excluded.material`,
				row.c.X, row.c.Y, row.c.Z, int(row.v.Kind), int(row.v.Material),
			)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
	}
	_ = tx.Commit()
}

func (s *OverlayStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
