package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/apperrors"
	"github.com/auditrail-io/auditrail-engine/pkg/database"
	"github.com/auditrail-io/auditrail-engine/pkg/logging"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

// RecordStore is the transactional record storage contract the executor
// drives: insert returning the persisted row, per-field update, delete.
// Every call runs on the Querier it is handed, which during engine runs is
// the executor's transaction.
//
// Table and column names must come from the engine's registry; the store
// additionally quotes every identifier, and all values travel as positional
// parameters.
type RecordStore interface {
	Insert(ctx context.Context, q database.Querier, table string, attrs map[string]any) (map[string]any, error)
	Update(ctx context.Context, q database.Querier, table, keyColumn, key string, changes map[string]models.FieldChange) error
	Delete(ctx context.Context, q database.Querier, table, keyColumn, key string) error
}

type sqlRecordStore struct {
	logger *zap.Logger
}

// NewRecordStore creates the Postgres-backed RecordStore.
func NewRecordStore(logger *zap.Logger) RecordStore {
	return &sqlRecordStore{logger: logger.Named("record-store")}
}

var _ RecordStore = (*sqlRecordStore)(nil)

func (s *sqlRecordStore) Insert(ctx context.Context, q database.Querier, table string, attrs map[string]any) (map[string]any, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("insert into %s has no attributes", table)
	}

	columns := sortedKeys(attrs)
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = attrs[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	s.logger.Debug("inserting record",
		zap.String("table", table),
		zap.Int("columns", len(columns)),
		zap.String("query", logging.SanitizeQuery(query)))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil, fmt.Errorf("insert into %s returned no row", table)
	}

	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted row from %s: %w", table, err)
	}

	row := make(map[string]any, len(values))
	for i, fd := range rows.FieldDescriptions() {
		row[fd.Name] = values[i]
	}

	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	return row, nil
}

func (s *sqlRecordStore) Update(ctx context.Context, q database.Querier, table, keyColumn, key string, changes map[string]models.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}

	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	assignments := make([]string, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, field := range fields {
		assignments[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{field}.Sanitize(), i+1)
		args = append(args, changes[field].New)
	}
	args = append(args, key)

	// The key column is compared as text so string-encoded keys match
	// integer and uuid columns alike.
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s::text = $%d",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(assignments, ", "),
		pgx.Identifier{keyColumn}.Sanitize(),
		len(fields)+1)

	s.logger.Debug("updating record",
		zap.String("table", table),
		zap.String("key", key),
		zap.Int("fields", len(fields)),
		zap.String("query", logging.SanitizeQuery(query)))

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s with key %s: %w", table, key, apperrors.ErrNotFound)
	}
	return nil
}

func (s *sqlRecordStore) Delete(ctx context.Context, q database.Querier, table, keyColumn, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s::text = $1",
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{keyColumn}.Sanitize())

	s.logger.Debug("deleting record", zap.String("table", table), zap.String("key", key))

	tag, err := q.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s with key %s: %w", table, key, apperrors.ErrNotFound)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
