package audit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/auditrail-io/auditrail-engine/pkg/apperrors"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
	"github.com/auditrail-io/auditrail-engine/pkg/registry"
)

// Validator checks a change-set against the engine's structural rules before
// any storage I/O is attempted. Rules run in a fixed order and short-circuit
// on the first failure.
type Validator struct {
	reg *registry.Registry
}

// NewValidator creates a Validator backed by the given registry.
func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{reg: reg}
}

// Validate applies the structural rules, in order:
//
//  1. actor present, else ErrMisconfigured
//  2. action supported, else ErrInvalidAction
//  3. every member auditable as used, else ErrInvalidChangeSet naming the
//     first offender
//  4. cardinality: exactly one member for CREATE/DELETE, at least one for
//     UPDATE, else ErrInvalidChangeSet
//  5. CREATE target table registered, else ErrUnknownTable
//  6. every member's key non-composite, else ErrUnsupportedKey
func (v *Validator) Validate(actor models.Actor, cs models.ChangeSet) error {
	if actor.ID == uuid.Nil {
		return fmt.Errorf("%w: no actor bound, changes cannot be attributed", apperrors.ErrMisconfigured)
	}
	if actor.Source != "" && !actor.Source.IsValid() {
		return fmt.Errorf("%w: unknown actor source %q", apperrors.ErrMisconfigured, actor.Source)
	}

	if !cs.Action.IsValid() {
		return fmt.Errorf("%w: %q is not one of create, update, delete", apperrors.ErrInvalidAction, cs.Action)
	}

	for i, rec := range cs.Records {
		if rec == nil {
			return fmt.Errorf("%w: member %d is nil", apperrors.ErrInvalidChangeSet, i)
		}
		if rec.TableName() == "" {
			return fmt.Errorf("%w: member %d (%T) has no table identity", apperrors.ErrInvalidChangeSet, i, rec)
		}
		if cs.Action != models.ActionCreate {
			if _, assigned := rec.PrimaryKey(); !assigned {
				return fmt.Errorf("%w: member %d (%s) has no assigned primary key", apperrors.ErrInvalidChangeSet, i, rec.TableName())
			}
			if _, ok := v.reg.Lookup(rec.TableName()); !ok {
				return fmt.Errorf("%w: member %d targets unregistered table %q", apperrors.ErrInvalidChangeSet, i, rec.TableName())
			}
		}
	}

	switch cs.Action {
	case models.ActionCreate, models.ActionDelete:
		if cs.Size() != 1 {
			return fmt.Errorf("%w: %s requires exactly one member, got %d", apperrors.ErrInvalidChangeSet, cs.Action, cs.Size())
		}
	case models.ActionUpdate:
		if cs.Size() == 0 {
			return fmt.Errorf("%w: update requires at least one member", apperrors.ErrInvalidChangeSet)
		}
	}

	if cs.Action == models.ActionCreate {
		table := cs.Records[0].TableName()
		if _, ok := v.reg.Lookup(table); !ok {
			return fmt.Errorf("%w: %q is not a registered record type", apperrors.ErrUnknownTable, table)
		}
	}

	for i, rec := range cs.Records {
		reg, ok := v.reg.Lookup(rec.TableName())
		if !ok {
			continue
		}
		if reg.Composite() {
			return fmt.Errorf("%w: member %d (%s) uses a composite key", apperrors.ErrUnsupportedKey, i, rec.TableName())
		}
	}

	return nil
}
