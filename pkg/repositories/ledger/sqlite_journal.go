package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// AppendJournal records a balance movement outside of a transaction
func (r *SQLiteRepository) AppendJournal(ctx context.Context, entry *entities.JournalEntry) error {
	return r.direct().AppendJournal(ctx, entry)
}

func (t *sqliteTx) AppendJournal(ctx context.Context, entry *entities.JournalEntry) error {
	// Generate ID if not provided
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	// Set timestamp if not provided
	if entry.Timestamp.IsZero() {
		entry.Timestamp = t.now()
	}

	_, err := t.q.ExecContext(ctx, `
		INSERT INTO journal_entries (
			id, user_id, wallet, amount, type, reference_id, description, balance_after, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.UserID,
		string(entry.Wallet),
		entry.Amount.String(),
		string(entry.Type),
		entry.ReferenceID,
		entry.Description,
		entry.BalanceAfter.String(),
		formatTime(entry.Timestamp),
	)
	if err != nil {
		return storageErr("append journal", err)
	}
	return nil
}

// UnexportedJournal returns entries not yet archived, oldest first
func (r *SQLiteRepository) UnexportedJournal(ctx context.Context, limit int) ([]*entities.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, wallet, amount, type, reference_id, description, balance_after, timestamp, exported
		FROM journal_entries
		WHERE exported = 0
		ORDER BY rowid ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr("unexported journal", err)
	}
	defer rows.Close()

	var entries []*entities.JournalEntry
	for rows.Next() {
		var entry entities.JournalEntry
		var timestamp string
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Wallet,
			&entry.Amount,
			&entry.Type,
			&entry.ReferenceID,
			&entry.Description,
			&entry.BalanceAfter,
			&timestamp,
			&entry.Exported,
		); err != nil {
			return nil, storageErr("scan journal entry", err)
		}
		if entry.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, storageErr("scan journal entry", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate journal", err)
	}
	return entries, nil
}

// MarkJournalExported flags entries as archived
func (r *SQLiteRepository) MarkJournalExported(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE journal_entries SET exported = 1 WHERE id IN (`+placeholders+`)`, args...,
	); err != nil {
		return storageErr("mark journal exported", err)
	}
	return nil
}
