package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hearthchat/hearth-server/internal/core"
	"github.com/hearthchat/hearth-server/internal/proto"
)

// schemaVersion tags the snapshot layout. Load refuses a database written
// by a newer server instead of silently misreading it.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS houses (
	name    TEXT PRIMARY KEY,
	creator TEXT NOT NULL,
	rooms   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS house_ranks (
	house TEXT NOT NULL,
	rank  TEXT NOT NULL,
	color TEXT NOT NULL,
	PRIMARY KEY (house, rank)
);
CREATE TABLE IF NOT EXISTS house_members (
	house    TEXT NOT NULL,
	username TEXT NOT NULL,
	rank     TEXT NOT NULL,
	PRIMARY KEY (house, username)
);
CREATE TABLE IF NOT EXISTS profiles (
	username TEXT PRIMARY KEY,
	banned   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS offline_messages (
	username TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	frame    TEXT NOT NULL,
	PRIMARY KEY (username, seq)
);
`

// SQLiteStore implements store.Store on a single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the snapshot database at dbPath and applies the
// schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with state in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, state core.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"houses", "house_ranks", "house_members", "profiles", "offline_messages"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(schemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	if err := saveHouses(ctx, tx, state.Houses); err != nil {
		return err
	}
	if err := saveProfiles(ctx, tx, state.Profiles); err != nil {
		return err
	}
	if err := saveOffline(ctx, tx, state.Offline); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func saveHouses(ctx context.Context, tx *sql.Tx, houses map[string]*core.House) error {
	for name, h := range houses {
		rooms, err := json.Marshal(h.Rooms)
		if err != nil {
			return fmt.Errorf("encode rooms of %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO houses (name, creator, rooms) VALUES (?, ?, ?)",
			name, h.Creator, string(rooms)); err != nil {
			return fmt.Errorf("insert house %s: %w", name, err)
		}
		for rankName, rank := range h.Ranks {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO house_ranks (house, rank, color) VALUES (?, ?, ?)",
				name, rankName, rank.Color); err != nil {
				return fmt.Errorf("insert rank %s/%s: %w", name, rankName, err)
			}
		}
		for user, rankName := range h.Members {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO house_members (house, username, rank) VALUES (?, ?, ?)",
				name, user, rankName); err != nil {
				return fmt.Errorf("insert member %s/%s: %w", name, user, err)
			}
		}
	}
	return nil
}

func saveProfiles(ctx context.Context, tx *sql.Tx, profiles map[string]*core.Profile) error {
	for user, p := range profiles {
		banned := make([]string, 0, len(p.Banned))
		for b := range p.Banned {
			banned = append(banned, b)
		}
		encoded, err := json.Marshal(banned)
		if err != nil {
			return fmt.Errorf("encode ban set of %s: %w", user, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (username, banned) VALUES (?, ?)",
			user, string(encoded)); err != nil {
			return fmt.Errorf("insert profile %s: %w", user, err)
		}
	}
	return nil
}

func saveOffline(ctx context.Context, tx *sql.Tx, offline map[string][]core.Message) error {
	for user, log := range offline {
		for seq, msg := range log {
			frame, err := json.Marshal(proto.FromMessage(msg))
			if err != nil {
				return fmt.Errorf("encode offline message %s/%d: %w", user, seq, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO offline_messages (username, seq, frame) VALUES (?, ?, ?)",
				user, seq, string(frame)); err != nil {
				return fmt.Errorf("insert offline message %s/%d: %w", user, seq, err)
			}
		}
	}
	return nil
}

// Load reads the full snapshot back into a core.State.
func (s *SQLiteStore) Load(ctx context.Context) (core.State, error) {
	state := core.NewState()

	var version string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		// Fresh database, nothing to load.
		return state, nil
	case err != nil:
		return state, fmt.Errorf("read schema version: %w", err)
	case version != fmt.Sprint(schemaVersion):
		return state, fmt.Errorf("unsupported snapshot schema version %s", version)
	}

	if err := s.loadHouses(ctx, state); err != nil {
		return state, err
	}
	if err := s.loadProfiles(ctx, state); err != nil {
		return state, err
	}
	if err := s.loadOffline(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}

func (s *SQLiteStore) loadHouses(ctx context.Context, state core.State) error {
	rows, err := s.db.QueryContext(ctx, "SELECT name, creator, rooms FROM houses")
	if err != nil {
		return fmt.Errorf("query houses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, creator, rooms string
		if err := rows.Scan(&name, &creator, &rooms); err != nil {
			return fmt.Errorf("scan house: %w", err)
		}
		h := &core.House{
			Name:    name,
			Creator: creator,
			Members: make(map[string]string),
			Ranks:   make(map[string]core.Rank),
		}
		if err := json.Unmarshal([]byte(rooms), &h.Rooms); err != nil {
			return fmt.Errorf("decode rooms of %s: %w", name, err)
		}
		state.Houses[name] = h
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate houses: %w", err)
	}

	if err := s.loadHouseRanks(ctx, state); err != nil {
		return err
	}
	return s.loadHouseMembers(ctx, state)
}

func (s *SQLiteStore) loadHouseRanks(ctx context.Context, state core.State) error {
	rows, err := s.db.QueryContext(ctx, "SELECT house, rank, color FROM house_ranks")
	if err != nil {
		return fmt.Errorf("query ranks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var house, rank, color string
		if err := rows.Scan(&house, &rank, &color); err != nil {
			return fmt.Errorf("scan rank: %w", err)
		}
		if h, ok := state.Houses[house]; ok {
			h.Ranks[rank] = core.Rank{Name: rank, Color: color}
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadHouseMembers(ctx context.Context, state core.State) error {
	rows, err := s.db.QueryContext(ctx, "SELECT house, username, rank FROM house_members")
	if err != nil {
		return fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var house, user, rank string
		if err := rows.Scan(&house, &user, &rank); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		if h, ok := state.Houses[house]; ok {
			h.Members[user] = rank
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadProfiles(ctx context.Context, state core.State) error {
	rows, err := s.db.QueryContext(ctx, "SELECT username, banned FROM profiles")
	if err != nil {
		return fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user, banned string
		if err := rows.Scan(&user, &banned); err != nil {
			return fmt.Errorf("scan profile: %w", err)
		}
		p := core.NewProfile(user)
		var names []string
		if err := json.Unmarshal([]byte(banned), &names); err != nil {
			return fmt.Errorf("decode ban set of %s: %w", user, err)
		}
		for _, b := range names {
			p.Banned[b] = struct{}{}
		}
		state.Profiles[user] = p
	}
	return rows.Err()
}

func (s *SQLiteStore) loadOffline(ctx context.Context, state core.State) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT username, frame FROM offline_messages ORDER BY username, seq")
	if err != nil {
		return fmt.Errorf("query offline messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user, encoded string
		if err := rows.Scan(&user, &encoded); err != nil {
			return fmt.Errorf("scan offline message: %w", err)
		}
		var frame proto.Frame
		if err := json.Unmarshal([]byte(encoded), &frame); err != nil {
			return fmt.Errorf("decode offline message for %s: %w", user, err)
		}
		state.Offline[user] = append(state.Offline[user], frame.Message())
	}
	return rows.Err()
}
