package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DivEden/DGB/internal/entities"
)

type dbStorage struct {
	dbpool *pgxpool.Pool
}

func New(ctx context.Context, databaseDSN string) (*dbStorage, error) {
	pool, err := pgxpool.New(ctx, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &dbStorage{dbpool: pool}, nil
}

func (s *dbStorage) Ping(ctx context.Context) error {
	return s.dbpool.Ping(ctx)
}

func (s *dbStorage) Close() {
	s.dbpool.Close()
}

// InsertBatch stores a batch summary and its per-item failures in one
// transaction, returning the batch with its assigned id.
func (s *dbStorage) InsertBatch(ctx context.Context, b entities.Batch, failures []entities.BatchFailure) (entities.Batch, error) {
	tx, err := s.dbpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return b, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO batches
		   (group_label, naming_mode, target_bytes, tolerance_bytes,
		    items_processed, items_failed, truncated,
		    total_input_bytes, total_output_bytes, zip_key)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING id, created_timestamp`,
		b.GroupLabel, b.NamingMode, b.TargetBytes, b.ToleranceBytes,
		b.ItemsProcessed, b.ItemsFailed, b.Truncated,
		b.TotalInputBytes, b.TotalOutputBytes, b.ZipKey,
	).Scan(&b.ID, &b.CreatedTimestamp)
	if err != nil {
		return b, fmt.Errorf("insert batch: %w", err)
	}

	for _, f := range failures {
		_, err = tx.Exec(ctx,
			`INSERT INTO batch_failures (batch_id, item_index, file_name, reason)
			 VALUES ($1,$2,$3,$4)`,
			b.ID, f.ItemIndex, f.FileName, f.Reason,
		)
		if err != nil {
			return b, fmt.Errorf("insert batch failure: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return b, fmt.Errorf("commit batch insert: %w", err)
	}
	return b, nil
}

// GetBatch loads one batch summary with its failures.
func (s *dbStorage) GetBatch(ctx context.Context, id int64) (entities.Batch, []entities.BatchFailure, error) {
	var b entities.Batch
	err := s.dbpool.QueryRow(ctx,
		`SELECT id, group_label, naming_mode, target_bytes, tolerance_bytes,
		        items_processed, items_failed, truncated,
		        total_input_bytes, total_output_bytes, zip_key, created_timestamp
		   FROM batches WHERE id = $1`, id,
	).Scan(&b.ID, &b.GroupLabel, &b.NamingMode, &b.TargetBytes, &b.ToleranceBytes,
		&b.ItemsProcessed, &b.ItemsFailed, &b.Truncated,
		&b.TotalInputBytes, &b.TotalOutputBytes, &b.ZipKey, &b.CreatedTimestamp)
	if err != nil {
		return b, nil, fmt.Errorf("select batch %d: %w", id, err)
	}

	rows, err := s.dbpool.Query(ctx,
		`SELECT id, batch_id, item_index, file_name, reason
		   FROM batch_failures WHERE batch_id = $1 ORDER BY item_index`, id)
	if err != nil {
		return b, nil, fmt.Errorf("select batch failures: %w", err)
	}
	defer rows.Close()

	var failures []entities.BatchFailure
	for rows.Next() {
		var f entities.BatchFailure
		if err := rows.Scan(&f.ID, &f.BatchID, &f.ItemIndex, &f.FileName, &f.Reason); err != nil {
			return b, nil, err
		}
		failures = append(failures, f)
	}
	return b, failures, rows.Err()
}

// InsertTicket stores one feedback ticket.
func (s *dbStorage) InsertTicket(ctx context.Context, t entities.Ticket) (entities.Ticket, error) {
	err := s.dbpool.QueryRow(ctx,
		`INSERT INTO tickets (name, email, category, message)
		 VALUES ($1,$2,$3,$4)
		 RETURNING id, resolved, created_timestamp`,
		t.Name, t.Email, t.Category, t.Message,
	).Scan(&t.ID, &t.Resolved, &t.CreatedTimestamp)
	if err != nil {
		return t, fmt.Errorf("insert ticket: %w", err)
	}
	return t, nil
}

// ListTickets returns the newest tickets first.
func (s *dbStorage) ListTickets(ctx context.Context, limit int) ([]entities.Ticket, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.dbpool.Query(ctx,
		`SELECT id, name, email, category, message, resolved, created_timestamp
		   FROM tickets ORDER BY created_timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select tickets: %w", err)
	}
	defer rows.Close()

	var tickets []entities.Ticket
	for rows.Next() {
		var t entities.Ticket
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Category, &t.Message, &t.Resolved, &t.CreatedTimestamp); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
