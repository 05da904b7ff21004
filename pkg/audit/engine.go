package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/apperrors"
	"github.com/auditrail-io/auditrail-engine/pkg/database"
	"github.com/auditrail-io/auditrail-engine/pkg/labels"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
	"github.com/auditrail-io/auditrail-engine/pkg/registry"
	"github.com/auditrail-io/auditrail-engine/pkg/repositories"
)

// Engine executes change-sets: it validates them, mutates the underlying
// records, and writes the derived audit entries in the same transaction.
// An Engine is built once at startup and is safe for concurrent use; all
// per-invocation state lives in sessions.
type Engine struct {
	db        *database.DB
	reg       *registry.Registry
	store     repositories.RecordStore
	sink      repositories.AuditRepository
	validator *Validator
	builder   *Builder
	logger    *zap.Logger
}

// NewEngine wires the engine from its collaborators. catalog may be nil
// when no label catalog file is configured.
func NewEngine(db *database.DB, reg *registry.Registry, store repositories.RecordStore, sink repositories.AuditRepository, catalog *labels.Catalog, logger *zap.Logger) *Engine {
	return &Engine{
		db:        db,
		reg:       reg,
		store:     store,
		sink:      sink,
		validator: NewValidator(reg),
		builder:   NewBuilder(NewResolver(catalog)),
		logger:    logger.Named("audit-engine"),
	}
}

// Outcome reports a successful run.
type Outcome struct {
	// CorrelationID is shared by every audit entry of this run.
	CorrelationID uuid.UUID

	// Records holds the mutated record state: the persisted record for
	// CREATE (including any storage-assigned key), the input records for
	// UPDATE. Empty for DELETE, where success is the confirmation.
	Records []models.Record

	// Entries are the audit rows written.
	Entries []models.AuditEntry

	// Committed reports whether the engine settled the transaction
	// itself. False when the caller bound a transaction with WithTx and
	// keeps commit ownership.
	Committed bool
}

// Session is one invocation context: bind the actor, optionally bind an
// external transaction, then call one terminal operation.
//
//	out, err := eng.NewSession().
//		WithActor(actor).
//		Update(ctx, profile)
//
// Sessions are not safe for concurrent use and are consumed by their
// terminal call.
type Session struct {
	eng    *Engine
	actor  *models.Actor
	tx     pgx.Tx
	ownsTx bool
}

// NewSession starts a fresh invocation context.
func (e *Engine) NewSession() *Session {
	return &Session{eng: e}
}

// WithActor binds the acting identity, overriding any actor carried by the
// request context.
func (s *Session) WithActor(actor models.Actor) *Session {
	s.actor = &actor
	return s
}

// WithTx binds an externally opened transaction. All writes happen inside
// it; commit and rollback stay with the caller.
func (s *Session) WithTx(tx pgx.Tx) *Session {
	s.tx = tx
	s.ownsTx = false
	return s
}

// WithOwnedTx binds an externally opened transaction and hands its
// lifecycle to the engine: commit on success, rollback on failure.
func (s *Session) WithOwnedTx(tx pgx.Tx) *Session {
	s.tx = tx
	s.ownsTx = true
	return s
}

// Create inserts one row into a registered table and audits it as a single
// whole-record entry.
func (s *Session) Create(ctx context.Context, table string, attrs map[string]any) (*Outcome, error) {
	return s.Run(ctx, models.ChangeSet{
		Action:  models.ActionCreate,
		Records: []models.Record{models.NewRecord{Table: table, Attrs: attrs}},
	})
}

// Update applies the dirty fields of each record and audits one entry per
// changed field. Records with no dirty fields contribute nothing.
func (s *Session) Update(ctx context.Context, records ...models.Record) (*Outcome, error) {
	return s.Run(ctx, models.ChangeSet{
		Action:  models.ActionUpdate,
		Records: records,
	})
}

// Delete removes one row and audits it as a single whole-record entry
// carrying the pre-delete snapshot.
func (s *Session) Delete(ctx context.Context, record models.Record) (*Outcome, error) {
	return s.Run(ctx, models.ChangeSet{
		Action:  models.ActionDelete,
		Records: []models.Record{record},
	})
}

// Run executes an already-assembled change-set. The terminal methods are
// sugar over this; callers batching heterogeneous records use it directly.
func (s *Session) Run(ctx context.Context, cs models.ChangeSet) (*Outcome, error) {
	actor := s.resolveActor(ctx)
	x := newExecution(s.eng, actor, cs.Action)

	x.transition(PhaseValidating)
	if err := s.eng.validator.Validate(actor, cs); err != nil {
		x.logger.Warn("change-set rejected", zap.Error(err))
		return nil, err
	}

	x.transition(PhaseDiffing)
	plan, err := s.eng.plan(cs, x)
	if err != nil {
		x.logger.Warn("change-set rejected", zap.Error(err))
		return nil, err
	}

	if plan.empty() {
		// Nothing dirty anywhere in the batch: a no-op, not an error,
		// and no storage I/O happens at all.
		x.transition(PhaseCommitted)
		x.logger.Info("change-set has no dirty fields, nothing to audit")
		return &Outcome{CorrelationID: x.correlationID, Committed: true}, nil
	}

	if s.tx != nil {
		return s.runInCallerTx(ctx, x, plan)
	}

	out, err := database.WithTransactionResult(ctx, s.eng.db, func(tx pgx.Tx) (*Outcome, error) {
		return x.apply(ctx, tx, plan)
	})
	if err != nil {
		x.transition(PhaseRolledBack)
		x.logger.Error("change-set rolled back", zap.Error(err))
		return nil, err
	}

	x.transition(PhaseCommitted)
	out.Committed = true
	x.logger.Info("change-set committed", zap.Int("entries", len(out.Entries)))
	return out, nil
}

func (s *Session) runInCallerTx(ctx context.Context, x *execution, plan *runPlan) (*Outcome, error) {
	out, err := x.apply(ctx, s.tx, plan)
	if err != nil {
		if s.ownsTx {
			if rbErr := s.tx.Rollback(ctx); rbErr != nil {
				x.logger.Warn("rollback failed", zap.Error(rbErr))
			}
			x.transition(PhaseRolledBack)
		}
		x.logger.Error("change-set failed in caller transaction", zap.Error(err))
		return nil, err
	}

	if !s.ownsTx {
		x.logger.Info("change-set flushed, commit left to caller",
			zap.Int("entries", len(out.Entries)))
		return out, nil
	}

	if err := s.tx.Commit(ctx); err != nil {
		x.transition(PhaseRolledBack)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	x.transition(PhaseCommitted)
	out.Committed = true
	x.logger.Info("change-set committed", zap.Int("entries", len(out.Entries)))
	return out, nil
}

func (s *Session) resolveActor(ctx context.Context) models.Actor {
	if s.actor != nil {
		return *s.actor
	}
	if actor, ok := models.GetActor(ctx); ok {
		return actor
	}
	return models.Actor{}
}

type plannedUpdate struct {
	rec     models.Record
	reg     registry.Registration
	key     string
	changes map[string]models.FieldChange
}

type plannedDelete struct {
	rec models.Record
	reg registry.Registration
	key string
}

type plannedInsert struct {
	reg   registry.Registration
	attrs map[string]any
}

// runPlan is the synchronous list of planned writes derived from one
// change-set, executed sequentially inside one transaction.
type runPlan struct {
	action  models.Action
	updates []plannedUpdate
	deletes []plannedDelete
	insert  *plannedInsert

	// entries pre-built during planning: update and delete rows, whose
	// values are fully known before any write. The create entry is built
	// after the insert returns the persisted row.
	entries []models.AuditEntry
}

func (p *runPlan) empty() bool {
	return p.insert == nil && len(p.updates) == 0 && len(p.deletes) == 0
}

// plan turns a validated change-set into planned writes and pre-built audit
// entries. It still runs before any storage I/O, so rejections here leave
// the store untouched.
func (e *Engine) plan(cs models.ChangeSet, x *execution) (*runPlan, error) {
	plan := &runPlan{action: cs.Action}

	switch cs.Action {
	case models.ActionCreate:
		rec := cs.Records[0]
		reg, _ := e.reg.Lookup(rec.TableName())
		attrs := rec.Attributes()
		if len(attrs) == 0 {
			return nil, fmt.Errorf("%w: create of %s has no attributes", apperrors.ErrInvalidChangeSet, reg.Table)
		}
		for _, field := range sortedAttrs(attrs) {
			if !reg.HasColumn(field) {
				return nil, fmt.Errorf("%w: %q is not a registered column of %s", apperrors.ErrInvalidChangeSet, field, reg.Table)
			}
		}
		plan.insert = &plannedInsert{reg: reg, attrs: attrs}

	case models.ActionUpdate:
		for _, rec := range cs.Records {
			reg, _ := e.reg.Lookup(rec.TableName())
			changes := Diff(rec)
			if len(changes) == 0 {
				continue
			}
			for _, field := range DirtyFields(changes) {
				if !reg.HasColumn(field) {
					return nil, fmt.Errorf("%w: %q is not a registered column of %s", apperrors.ErrInvalidChangeSet, field, reg.Table)
				}
			}
			key, _ := rec.PrimaryKey()
			plan.updates = append(plan.updates, plannedUpdate{rec: rec, reg: reg, key: key, changes: changes})
			plan.entries = append(plan.entries, e.builder.UpdateEntries(rec, changes, x.correlationID, x.actor.ID)...)
		}

	case models.ActionDelete:
		rec := cs.Records[0]
		reg, _ := e.reg.Lookup(rec.TableName())
		key, _ := rec.PrimaryKey()
		plan.deletes = append(plan.deletes, plannedDelete{rec: rec, reg: reg, key: key})
		plan.entries = append(plan.entries, e.builder.DeleteEntry(rec, x.correlationID, x.actor.ID))
	}

	return plan, nil
}

func sortedAttrs(attrs map[string]any) []string {
	fields := make([]string, 0, len(attrs))
	for field := range attrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
