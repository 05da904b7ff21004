package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/models"
	"github.com/auditrail-io/auditrail-engine/pkg/registry"
)

// Phase tracks an execution through its lifecycle. Committed and RolledBack
// are terminal.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseValidating   Phase = "validating"
	PhaseDiffing      Phase = "diffing"
	PhaseMutating     Phase = "mutating"
	PhaseAuditWriting Phase = "audit_writing"
	PhaseCommitted    Phase = "committed"
	PhaseRolledBack   Phase = "rolled_back"
)

// execution carries the per-invocation state of one change-set run. The
// engine itself stays stateless across invocations.
type execution struct {
	eng           *Engine
	actor         models.Actor
	correlationID uuid.UUID
	phase         Phase
	logger        *zap.Logger
}

func newExecution(eng *Engine, actor models.Actor, action models.Action) *execution {
	correlationID := uuid.New()
	return &execution{
		eng:           eng,
		actor:         actor,
		correlationID: correlationID,
		phase:         PhaseIdle,
		logger: eng.logger.With(
			zap.String("correlation_id", correlationID.String()),
			zap.String("action", action.String()),
			zap.String("actor_id", actor.ID.String())),
	}
}

func (x *execution) transition(next Phase) {
	x.logger.Debug("execution phase change",
		zap.String("from", string(x.phase)),
		zap.String("to", string(next)))
	x.phase = next
}

// apply performs the in-transaction half of a run: the record mutation(s)
// followed by the audit writes, all through tx. The caller settles the
// transaction afterwards.
func (x *execution) apply(ctx context.Context, tx pgx.Tx, plan *runPlan) (*Outcome, error) {
	x.transition(PhaseMutating)

	out := &Outcome{CorrelationID: x.correlationID}
	entries := plan.entries

	switch plan.action {
	case models.ActionCreate:
		ins := plan.insert
		row, err := x.eng.store.Insert(ctx, tx, ins.reg.Table, ins.attrs)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s record: %w", ins.reg.Table, err)
		}
		persisted := hydrate(ins.reg, row)
		out.Records = append(out.Records, persisted)

		x.transition(PhaseAuditWriting)
		entries = append(entries, x.eng.builder.CreateEntry(persisted, ins.reg.Prototype, x.correlationID, x.actor.ID))

	case models.ActionUpdate:
		for _, upd := range plan.updates {
			if err := x.eng.store.Update(ctx, tx, upd.reg.Table, upd.reg.KeyColumn(), upd.key, upd.changes); err != nil {
				return nil, fmt.Errorf("failed to update %s record %s: %w", upd.reg.Table, upd.key, err)
			}
			out.Records = append(out.Records, upd.rec)
		}
		x.transition(PhaseAuditWriting)

	case models.ActionDelete:
		del := plan.deletes[0]
		if err := x.eng.store.Delete(ctx, tx, del.reg.Table, del.reg.KeyColumn(), del.key); err != nil {
			return nil, fmt.Errorf("failed to delete %s record %s: %w", del.reg.Table, del.key, err)
		}
		x.transition(PhaseAuditWriting)
	}

	if err := x.eng.sink.AppendAll(ctx, tx, entries); err != nil {
		return nil, fmt.Errorf("failed to write audit entries: %w", err)
	}

	out.Entries = entries
	return out, nil
}

// hydrate turns the persisted row map into a Record, preferring the
// registration's typed hydrator.
func hydrate(reg registry.Registration, row map[string]any) models.Record {
	if reg.Hydrate != nil {
		return reg.Hydrate(row)
	}
	return models.StoredRecord{
		Table: reg.Table,
		Key:   models.EncodeKey(row[reg.KeyColumn()]),
		Row:   row,
	}
}
