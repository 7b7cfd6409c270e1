package storage

import (
	"context"
	"fmt"
)

const insertTransitionSQL = `
	INSERT INTO input_transitions (domain, signature, payload, occurred_ms)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (domain, signature, occurred_ms) DO NOTHING
`

// InsertTransitions writes a batch in one transaction and returns how
// many rows were actually inserted. Replayed duplicates are skipped by
// the conflict clause.
func (p *PostgresClient) InsertTransitions(ctx context.Context, batch []TransitionRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertTransitionSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range batch {
		result, err := stmt.ExecContext(ctx, rec.Domain, rec.Signature, []byte(rec.Payload), rec.OccurredMs)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert transition: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// RecentTransitions returns the newest transitions, optionally filtered
// by domain ("" = all domains).
func (p *PostgresClient) RecentTransitions(ctx context.Context, domain string, limit int) ([]TransitionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, domain, signature, payload, occurred_ms, recorded_at
		FROM input_transitions
	`
	args := []any{}
	if domain != "" {
		query += ` WHERE domain = $1 ORDER BY occurred_ms DESC LIMIT $2`
		args = append(args, domain, limit)
	} else {
		query += ` ORDER BY occurred_ms DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	records := make([]TransitionRecord, 0)
	for rows.Next() {
		var rec TransitionRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.Domain, &rec.Signature, &payload, &rec.OccurredMs, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		rec.Payload = payload
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}

	return records, nil
}

// CountByDomain returns per-domain row counts.
func (p *PostgresClient) CountByDomain(ctx context.Context) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT domain, COUNT(*)
		FROM input_transitions
		GROUP BY domain
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count transitions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var domain string
		var count int64
		if err := rows.Scan(&domain, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[domain] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read counts: %w", err)
	}

	return counts, nil
}
