package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/auditrail-io/auditrail-engine/pkg/database"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
	"github.com/auditrail-io/auditrail-engine/pkg/registry"
)

// deliveryProfile is a fixture record with a field label capability for
// offer_delivery_trade_in (0 -> "No", 1 -> "Yes").
type deliveryProfile struct {
	id       string
	attrs    map[string]any
	snapshot map[string]any
}

func (p *deliveryProfile) TableName() string          { return "delivery_profiles" }
func (p *deliveryProfile) PrimaryKey() (string, bool) { return p.id, p.id != "" }
func (p *deliveryProfile) Attributes() map[string]any { return p.attrs }
func (p *deliveryProfile) Snapshot() map[string]any   { return p.snapshot }

func (p *deliveryProfile) AuditLabel(field string, value any) (string, bool) {
	if field != "offer_delivery_trade_in" {
		return "", false
	}
	switch value {
	case 0, int64(0):
		return "No", true
	case 1, int64(1):
		return "Yes", true
	}
	return "", false
}

func (p *deliveryProfile) AuditRecordLabel(row map[string]any) (string, bool) {
	return fmt.Sprintf("delivery profile %v", row["id"]), true
}

// deliveryFee is a fixture record with no label capability.
type deliveryFee struct {
	id       string
	attrs    map[string]any
	snapshot map[string]any
}

func (f *deliveryFee) TableName() string          { return "delivery_fees" }
func (f *deliveryFee) PrimaryKey() (string, bool) { return f.id, f.id != "" }
func (f *deliveryFee) Attributes() map[string]any { return f.attrs }
func (f *deliveryFee) Snapshot() map[string]any   { return f.snapshot }

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.MustRegister(registry.Registration{
		Table:      "delivery_profiles",
		KeyColumns: []string{"id"},
		Columns:    []string{"delivery_range_miles", "offer_delivery_trade_in"},
		Prototype:  &deliveryProfile{},
	})
	reg.MustRegister(registry.Registration{
		Table:      "delivery_fees",
		KeyColumns: []string{"id"},
		Columns:    []string{"profile_id", "distance_miles", "fee_cents", "offer_delivery_trade_in"},
		Prototype:  &deliveryFee{},
	})
	reg.MustRegister(registry.Registration{
		Table:      "profile_fee_links",
		KeyColumns: []string{"profile_id", "fee_id"},
		Columns:    []string{"position"},
	})
	return reg
}

type insertCall struct {
	table string
	attrs map[string]any
}

type updateCall struct {
	table   string
	key     string
	changes map[string]models.FieldChange
}

type deleteCall struct {
	table string
	key   string
}

// mockRecordStore is an in-memory RecordStore that records calls and can be
// told to fail.
type mockRecordStore struct {
	inserts []insertCall
	updates []updateCall
	deletes []deleteCall

	nextID    int64
	insertErr error
	updateErr error
	deleteErr error
}

func (m *mockRecordStore) Insert(ctx context.Context, q database.Querier, table string, attrs map[string]any) (map[string]any, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.inserts = append(m.inserts, insertCall{table: table, attrs: attrs})

	m.nextID++
	row := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		row[k] = v
	}
	row["id"] = m.nextID
	return row, nil
}

func (m *mockRecordStore) Update(ctx context.Context, q database.Querier, table, keyColumn, key string, changes map[string]models.FieldChange) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, updateCall{table: table, key: key, changes: changes})
	return nil
}

func (m *mockRecordStore) Delete(ctx context.Context, q database.Querier, table, keyColumn, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes = append(m.deletes, deleteCall{table: table, key: key})
	return nil
}

func (m *mockRecordStore) writes() int {
	return len(m.inserts) + len(m.updates) + len(m.deletes)
}

// mockAuditSink is an in-memory append-only sink.
type mockAuditSink struct {
	entries   []models.AuditEntry
	appendErr error
}

func (m *mockAuditSink) AppendAll(ctx context.Context, q database.Querier, entries []models.AuditEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *mockAuditSink) GetByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.AuditEntry, error) {
	var result []models.AuditEntry
	for _, e := range m.entries {
		if e.CorrelationID == correlationID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockAuditSink) GetByRecord(ctx context.Context, tableName, primaryKey string, limit int) ([]models.AuditEntry, error) {
	var result []models.AuditEntry
	for _, e := range m.entries {
		if e.TableName == tableName && e.PrimaryKey == primaryKey {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockAuditSink) GetByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	var result []models.AuditEntry
	for _, e := range m.entries {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// fakeTx satisfies pgx.Tx for unit tests. Only Commit and Rollback matter;
// the mocked store and sink never touch the connection.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error          { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error        { t.rolledBack = true; return nil }
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }
