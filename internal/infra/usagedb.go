package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

const usageDBName = "usage.db"

// EncryptedUsageLog implements domain.UsageLog and domain.UsageStatsProvider
// using a SQLCipher encrypted SQLite database. Usage history is personal
// data, so it never touches disk in the clear.
type EncryptedUsageLog struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedUsageLog opens (or creates) the encrypted usage database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedUsageLog(dataDir string, key []byte) (*EncryptedUsageLog, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, usageDBName)
	keyHex := hex.EncodeToString(key)

	// Open with SQLCipher key as DSN parameter
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Verify encryption works by running a query
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	log := &EncryptedUsageLog{db: db, dbPath: dbPath}
	if err := log.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return log, nil
}

// createTables creates the schema if it doesn't exist.
func (l *EncryptedUsageLog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		package TEXT NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_window
		ON sessions (start_ms, end_ms);
	`
	_, err := l.db.Exec(schema)
	return err
}

// AppendSession records one completed foreground session.
func (l *EncryptedUsageLog) AppendSession(ctx context.Context, s domain.UsageSession) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sessions (id, package, start_ms, end_ms) VALUES (?, ?, ?, ?)`,
		s.ID, s.Package, s.Start.UnixMilli(), s.End.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append session: %w", err)
	}
	return nil
}

// ForegroundTimes returns per-package foreground time within the window.
// Sessions straddling a window edge contribute only their overlap, the same
// clamping the platform usage-stats query applies to its daily buckets.
func (l *EncryptedUsageLog) ForegroundTimes(ctx context.Context, window domain.UsageWindow) (map[string]time.Duration, error) {
	startMs := window.Start.UnixMilli()
	endMs := window.End.UnixMilli()

	rows, err := l.db.QueryContext(ctx, `
		SELECT package, SUM(MIN(end_ms, ?) - MAX(start_ms, ?))
		FROM sessions
		WHERE end_ms > ? AND start_ms < ?
		GROUP BY package`,
		endMs, startMs, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	times := make(map[string]time.Duration)
	for rows.Next() {
		var pkg string
		var ms int64
		if err := rows.Scan(&pkg, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		if ms > 0 {
			times[pkg] = time.Duration(ms) * time.Millisecond
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return times, nil
}

// Prune deletes sessions that ended before cutoff. Keeps the database from
// growing without bound; usage older than the retention horizon has no
// caller.
func (l *EncryptedUsageLog) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE end_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (l *EncryptedUsageLog) Close() error {
	return l.db.Close()
}

// DBPath returns the database file path (for tests and status output).
func (l *EncryptedUsageLog) DBPath() string {
	return l.dbPath
}

// Ensure EncryptedUsageLog implements both sides of the usage store.
var (
	_ domain.UsageLog           = (*EncryptedUsageLog)(nil)
	_ domain.UsageStatsProvider = (*EncryptedUsageLog)(nil)
)
