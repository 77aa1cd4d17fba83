package infra

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"faucet-gateway/faucet/domain"
	"faucet-gateway/faucet/infra/migrations"

	_ "modernc.org/sqlite"
)

// SQLiteLedger persiste o log de requisições em SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

var _ domain.RequestLedger = (*SQLiteLedger)(nil)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// OpenSQLiteLedger abre (ou cria) o banco em path e aplica as migrações embutidas.
func OpenSQLiteLedger(ctx context.Context, path string) (*SQLiteLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// um único writer evita SQLITE_BUSY entre conexões do mesmo processo.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (s *SQLiteLedger) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteLedger) Record(ctx context.Context, e domain.LedgerEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("%w: storage is not configured", domain.ErrStorage)
	}
	grantedAt := e.GrantedAt
	if grantedAt.IsZero() {
		grantedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (requester, destination, txid, granted_at, sequence, network, amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(e.Requester),
		e.Destination,
		e.TxID,
		toMillis(grantedAt),
		int64(e.Sequence),
		e.Network,
		int64(e.Amount),
	)
	if err != nil {
		return fmt.Errorf("%w: insert request: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *SQLiteLedger) FindRecent(ctx context.Context, requester domain.Key, destination string, since time.Time) ([]domain.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("%w: storage is not configured", domain.ErrStorage)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT requester, destination, txid, granted_at, sequence, network, amount
		   FROM requests
		  WHERE requester = ? AND destination = ? AND granted_at > ?
		  ORDER BY granted_at, id`,
		string(requester), destination, toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: find recent requests: %w", domain.ErrStorage, err)
	}
	return scanEntries(rows)
}

func (s *SQLiteLedger) All(ctx context.Context) ([]domain.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("%w: storage is not configured", domain.ErrStorage)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT requester, destination, txid, granted_at, sequence, network, amount
		   FROM requests
		  ORDER BY granted_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list requests: %w", domain.ErrStorage, err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	defer func() { _ = rows.Close() }()

	out := []domain.LedgerEntry{}
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			requester string
			grantedAt int64
			sequence  int64
			amount    int64
		)
		if err := rows.Scan(&requester, &e.Destination, &e.TxID, &grantedAt, &sequence, &e.Network, &amount); err != nil {
			return nil, fmt.Errorf("%w: scan request: %w", domain.ErrStorage, err)
		}
		e.Requester = domain.Key(requester)
		e.GrantedAt = fromMillis(grantedAt)
		e.Sequence = uint64(sequence)
		e.Amount = uint64(amount)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate requests: %w", domain.ErrStorage, err)
	}
	return out, nil
}
