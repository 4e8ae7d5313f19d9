package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
)

// ClickHouseSignalStore implements SignalStore on ClickHouse. ClickHouse has
// no unique constraints, so Append checks for the (symbol, ts) key before
// inserting; the scheduler's one-in-flight-per-symbol rule makes that safe.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseSignalStore(db *sql.DB, table string) repository.SignalStore {
	return &ClickHouseSignalStore{db: db, table: table}
}

func (s *ClickHouseSignalStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseSignalStore) Append(ctx context.Context, sig *models.Signal) error {
	var count uint64
	q := fmt.Sprintf("SELECT count() FROM %s WHERE symbol = ? AND ts = ?", s.table)
	if err := s.db.QueryRowContext(ctx, q, sig.Symbol, sig.Timestamp).Scan(&count); err != nil {
		return fmt.Errorf("signal dedup check: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s@%s", models.ErrDuplicateTimestamp, sig.Symbol, sig.Timestamp.Format(time.RFC3339))
	}

	votes, err := json.Marshal(sig.Votes)
	if err != nil {
		return fmt.Errorf("marshal votes: %w", err)
	}
	q = fmt.Sprintf("INSERT INTO %s (ts, symbol, type, confidence, price, price_target, stop_loss, votes, incomplete, stale) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err = s.db.ExecContext(ctx, q,
		sig.Timestamp,
		sig.Symbol,
		string(sig.Type),
		sig.Confidence,
		sig.PriceAtSignal,
		sig.PriceTarget,
		sig.StopLoss,
		string(votes),
		boolToUInt8(sig.IndicatorsIncomplete),
		boolToUInt8(sig.SentimentStale),
	)
	return err
}

func (s *ClickHouseSignalStore) Latest(ctx context.Context, symbol string) (*models.Signal, error) {
	q := fmt.Sprintf("SELECT ts, symbol, type, confidence, price, price_target, stop_loss, votes, incomplete, stale FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT 1", s.table)
	sig, err := scanSignal(s.db.QueryRowContext(ctx, q, symbol))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	return sig, err
}

func (s *ClickHouseSignalStore) History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Signal, error) {
	if to.IsZero() {
		to = time.Now()
	}
	args := []interface{}{symbol, from, to}
	if limit > 0 {
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, historyQuery(s.table, limit), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []*models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, rows.Err()
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // Managed by pkg
}

// historyQuery applies LIMIT only when the caller asked for one, matching the
// memory store's unbounded default.
func historyQuery(table string, limit int) string {
	q := fmt.Sprintf("SELECT ts, symbol, type, confidence, price, price_target, stop_loss, votes, incomplete, stale FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC", table)
	if limit > 0 {
		q += " LIMIT ?"
	}
	return q
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(r rowScanner) (*models.Signal, error) {
	var sig models.Signal
	var typ, votes string
	var incomplete, stale uint8
	if err := r.Scan(&sig.Timestamp, &sig.Symbol, &typ, &sig.Confidence, &sig.PriceAtSignal,
		&sig.PriceTarget, &sig.StopLoss, &votes, &incomplete, &stale); err != nil {
		return nil, err
	}
	sig.Type = models.SignalType(typ)
	sig.IndicatorsIncomplete = incomplete != 0
	sig.SentimentStale = stale != 0
	if votes != "" {
		if err := json.Unmarshal([]byte(votes), &sig.Votes); err != nil {
			return nil, fmt.Errorf("unmarshal votes: %w", err)
		}
	}
	return &sig, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
