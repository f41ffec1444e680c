package storage

// sqlite.go: cache de rondas en SQLite (pure Go, sin CGo).
//
// Una fila por epoch. Los decimales se guardan como TEXT para no perder
// precisión; decimal.Decimal implementa Scanner/Valuer. Save reemplaza la
// tabla completa dentro de una transacción, igual que el fichero JSON.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/predictbt/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
    epoch                  INTEGER PRIMARY KEY,
    start_timestamp        INTEGER NOT NULL,
    lock_timestamp         INTEGER NOT NULL,
    close_timestamp        INTEGER NOT NULL,
    lock_price             TEXT    NOT NULL,
    close_price            TEXT    NOT NULL,
    total_amount           TEXT    NOT NULL,
    bull_amount            TEXT    NOT NULL,
    bear_amount            TEXT    NOT NULL,
    reward_base_cal_amount TEXT    NOT NULL,
    reward_amount          TEXT    NOT NULL,
    winner                 TEXT    NOT NULL,
    bull_payout            TEXT    NOT NULL,
    bear_payout            TEXT    NOT NULL
);
`

// SQLiteCache implementa ports.RoundCache usando SQLite.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteCache: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer; además :memory: vive en una sola conexión
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteCache: apply schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Load devuelve todas las rondas ordenadas por epoch.
// Una fila ilegible invalida la cache entera (se trata como vacía).
func (s *SQLiteCache) Load(ctx context.Context) ([]domain.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT epoch, start_timestamp, lock_timestamp, close_timestamp,
		       lock_price, close_price, total_amount, bull_amount, bear_amount,
		       reward_base_cal_amount, reward_amount, winner, bull_payout, bear_payout
		FROM rounds
		ORDER BY epoch ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.SQLiteCache.Load: query: %w", err)
	}
	defer rows.Close()

	rounds := []domain.RoundRecord{}
	for rows.Next() {
		var r domain.RoundRecord
		var winner string
		if err := rows.Scan(
			&r.Epoch,
			&r.StartTimestamp,
			&r.LockTimestamp,
			&r.CloseTimestamp,
			&r.LockPrice,
			&r.ClosePrice,
			&r.TotalAmount,
			&r.BullAmount,
			&r.BearAmount,
			&r.RewardBaseCalAmount,
			&r.RewardAmount,
			&winner,
			&r.BullPayout,
			&r.BearPayout,
		); err != nil {
			slog.Warn("storage: sqlite cache row is corrupt, starting empty", "err", err)
			return []domain.RoundRecord{}, nil
		}
		r.Winner = domain.Side(winner)
		if err := r.Validate(); err != nil {
			slog.Warn("storage: sqlite cache has invalid round, starting empty", "err", err)
			return []domain.RoundRecord{}, nil
		}
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.SQLiteCache.Load: rows: %w", err)
	}
	return rounds, nil
}

// Save reemplaza el contenido de la tabla en una sola transacción.
func (s *SQLiteCache) Save(ctx context.Context, rounds []domain.RoundRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SQLiteCache.Save: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rounds`); err != nil {
		return fmt.Errorf("storage.SQLiteCache.Save: truncate: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rounds
			(epoch, start_timestamp, lock_timestamp, close_timestamp,
			 lock_price, close_price, total_amount, bull_amount, bear_amount,
			 reward_base_cal_amount, reward_amount, winner, bull_payout, bear_payout)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(epoch) DO UPDATE SET
			start_timestamp        = excluded.start_timestamp,
			lock_timestamp         = excluded.lock_timestamp,
			close_timestamp        = excluded.close_timestamp,
			lock_price             = excluded.lock_price,
			close_price            = excluded.close_price,
			total_amount           = excluded.total_amount,
			bull_amount            = excluded.bull_amount,
			bear_amount            = excluded.bear_amount,
			reward_base_cal_amount = excluded.reward_base_cal_amount,
			reward_amount          = excluded.reward_amount,
			winner                 = excluded.winner,
			bull_payout            = excluded.bull_payout,
			bear_payout            = excluded.bear_payout
	`)
	if err != nil {
		return fmt.Errorf("storage.SQLiteCache.Save: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rounds {
		if _, err := stmt.ExecContext(ctx,
			r.Epoch,
			r.StartTimestamp,
			r.LockTimestamp,
			r.CloseTimestamp,
			r.LockPrice.String(),
			r.ClosePrice.String(),
			r.TotalAmount.String(),
			r.BullAmount.String(),
			r.BearAmount.String(),
			r.RewardBaseCalAmount.String(),
			r.RewardAmount.String(),
			string(r.Winner),
			r.BullPayout.String(),
			r.BearPayout.String(),
		); err != nil {
			return fmt.Errorf("storage.SQLiteCache.Save: insert epoch %d: %w", r.Epoch, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SQLiteCache.Save: commit: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
