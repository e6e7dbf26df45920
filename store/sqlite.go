package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Josh050608/orim-convert/codec"
)

const opTimeout = 5 * time.Second

// SQLiteStore implements Store on an embedded SQLite database. Bit runs are
// stored as text so the queues stay inspectable with the sqlite3 shell.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the engine database at path. Use
// ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The engine is the only writer; a single connection sidesteps
	// SQLITE_BUSY between the handler and the decoder loop.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS outgoing_messages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		message      TEXT NOT NULL,
		bits         TEXT NOT NULL,
		bits_sent    INTEGER NOT NULL DEFAULT 0,
		fully_sent   INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS incoming_messages (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		peer_id     INTEGER NOT NULL,
		bits        TEXT NOT NULL,
		received_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS decoded_messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		message    TEXT NOT NULL,
		decoded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_outgoing_pending
		ON outgoing_messages(id) WHERE fully_sent = 0;
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) EnqueueOutgoing(message string, bits codec.BitString) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO outgoing_messages (message, bits) VALUES (?, ?)",
		message, string(bits))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) NextChunk(max int) (int64, codec.BitString, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		id   int64
		bits string
		sent int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, bits, bits_sent FROM outgoing_messages
		WHERE fully_sent = 0 ORDER BY id LIMIT 1
	`).Scan(&id, &bits, &sent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNoPending
	}
	if err != nil {
		return 0, "", err
	}

	if sent >= len(bits) {
		// Should have been marked fully sent; treat as empty.
		return 0, "", ErrNoPending
	}
	end := sent + max
	if end > len(bits) {
		end = len(bits)
	}
	return id, codec.BitString(bits[sent:end]), nil
}

func (s *SQLiteStore) Advance(id int64, n int) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var (
		bits string
		sent int
	)
	err = tx.QueryRowContext(ctx,
		"SELECT bits, bits_sent FROM outgoing_messages WHERE id = ?", id,
	).Scan(&bits, &sent)
	if err != nil {
		return false, err
	}

	sent += n
	done := sent >= len(bits)
	if done {
		sent = len(bits)
		_, err = tx.ExecContext(ctx, `
			UPDATE outgoing_messages
			SET bits_sent = ?, fully_sent = 1, completed_at = CURRENT_TIMESTAMP
			WHERE id = ?`, sent, id)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE outgoing_messages SET bits_sent = ? WHERE id = ?", sent, id)
	}
	if err != nil {
		return false, err
	}
	return done, tx.Commit()
}

func (s *SQLiteStore) AppendIncoming(peerID int, bits codec.BitString) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO incoming_messages (peer_id, bits) VALUES (?, ?)",
		peerID, string(bits))
	return err
}

func (s *SQLiteStore) IncomingBits() (codec.BitString, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bits FROM incoming_messages ORDER BY id")
	if err != nil {
		return "", 0, err
	}
	defer rows.Close()

	var (
		all      codec.BitString
		snapshot int64
	)
	for rows.Next() {
		var (
			id   int64
			bits string
		)
		if err := rows.Scan(&id, &bits); err != nil {
			return "", 0, err
		}
		all += codec.BitString(bits)
		snapshot = id
	}
	return all, snapshot, rows.Err()
}

func (s *SQLiteStore) ConsumeIncoming(snapshot int64, remainder codec.BitString) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Only rows covered by the snapshot go away; fragments appended since
	// then keep their ids above it and stay queued behind the remainder.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM incoming_messages WHERE id <= ?", snapshot); err != nil {
		return err
	}
	if len(remainder) > 0 {
		// Reuse the snapshot id so the remainder sorts before any fragment
		// that arrived mid-pass.
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO incoming_messages (id, peer_id, bits) VALUES (?, 0, ?)",
			snapshot, string(remainder)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveDecoded(message string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO decoded_messages (message) VALUES (?)", message)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) DecodedMessages(limit int) ([]DecodedMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, decoded_at FROM decoded_messages
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecodedMessage
	for rows.Next() {
		var m DecodedMessage
		if err := rows.Scan(&m.ID, &m.Message, &m.DecodedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) OutgoingMessages(limit int) ([]OutgoingMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, bits, bits_sent, fully_sent, created_at,
		       COALESCE(completed_at, created_at)
		FROM outgoing_messages ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutgoingMessage
	for rows.Next() {
		var (
			m    OutgoingMessage
			bits string
		)
		if err := rows.Scan(&m.ID, &m.Message, &bits, &m.BitsSent, &m.FullySent,
			&m.CreatedAt, &m.CompletedAt); err != nil {
			return nil, err
		}
		m.Bits = codec.BitString(bits)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
