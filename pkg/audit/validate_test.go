package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditrail-io/auditrail-engine/pkg/apperrors"
	"github.com/auditrail-io/auditrail-engine/pkg/models"
)

func testActor() models.Actor {
	return models.Actor{ID: uuid.New(), Source: models.SourceAPI}
}

func TestValidate_AcceptsWellFormedChangeSets(t *testing.T) {
	v := NewValidator(testRegistry())

	tests := []struct {
		name string
		cs   models.ChangeSet
	}{
		{
			name: "single record update",
			cs: models.ChangeSet{
				Action: models.ActionUpdate,
				Records: []models.Record{
					&deliveryProfile{id: "10", attrs: map[string]any{"delivery_range_miles": 100}},
				},
			},
		},
		{
			name: "multi record update",
			cs: models.ChangeSet{
				Action: models.ActionUpdate,
				Records: []models.Record{
					&deliveryFee{id: "1", attrs: map[string]any{"fee_cents": 500}},
					&deliveryFee{id: "2", attrs: map[string]any{"fee_cents": 700}},
				},
			},
		},
		{
			name: "create",
			cs: models.ChangeSet{
				Action: models.ActionCreate,
				Records: []models.Record{
					models.NewRecord{Table: "delivery_fees", Attrs: map[string]any{"fee_cents": 500}},
				},
			},
		},
		{
			name: "delete",
			cs: models.ChangeSet{
				Action: models.ActionDelete,
				Records: []models.Record{
					&deliveryFee{id: "1", snapshot: map[string]any{"fee_cents": 500}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, v.Validate(testActor(), tt.cs))
		})
	}
}

func TestValidate_RejectsMissingActor(t *testing.T) {
	v := NewValidator(testRegistry())
	cs := models.ChangeSet{
		Action:  models.ActionUpdate,
		Records: []models.Record{&deliveryProfile{id: "10"}},
	}

	err := v.Validate(models.Actor{}, cs)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMisconfigured)
}

func TestValidate_RejectsUnknownActorSource(t *testing.T) {
	v := NewValidator(testRegistry())
	cs := models.ChangeSet{
		Action:  models.ActionUpdate,
		Records: []models.Record{&deliveryProfile{id: "10"}},
	}

	err := v.Validate(models.Actor{ID: uuid.New(), Source: "cron"}, cs)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMisconfigured)
}

func TestValidate_RejectsUnknownAction(t *testing.T) {
	v := NewValidator(testRegistry())
	cs := models.ChangeSet{
		Action:  "upsert",
		Records: []models.Record{&deliveryProfile{id: "10"}},
	}

	err := v.Validate(testActor(), cs)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAction)
}

func TestValidate_RejectsBadMembers(t *testing.T) {
	v := NewValidator(testRegistry())

	tests := []struct {
		name string
		cs   models.ChangeSet
	}{
		{
			name: "nil member",
			cs: models.ChangeSet{
				Action:  models.ActionUpdate,
				Records: []models.Record{nil},
			},
		},
		{
			name: "member without table identity",
			cs: models.ChangeSet{
				Action:  models.ActionUpdate,
				Records: []models.Record{models.StoredRecord{Key: "1"}},
			},
		},
		{
			name: "update member without assigned key",
			cs: models.ChangeSet{
				Action:  models.ActionUpdate,
				Records: []models.Record{&deliveryProfile{attrs: map[string]any{"delivery_range_miles": 100}}},
			},
		},
		{
			name: "delete member without assigned key",
			cs: models.ChangeSet{
				Action:  models.ActionDelete,
				Records: []models.Record{&deliveryFee{}},
			},
		},
		{
			name: "update member in unregistered table",
			cs: models.ChangeSet{
				Action:  models.ActionUpdate,
				Records: []models.Record{models.StoredRecord{Table: "invoices", Key: "9"}},
			},
		},
		{
			name: "second member bad",
			cs: models.ChangeSet{
				Action: models.ActionUpdate,
				Records: []models.Record{
					&deliveryFee{id: "1"},
					nil,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(testActor(), tt.cs)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidChangeSet)
		})
	}
}

func TestValidate_RejectsBadCardinality(t *testing.T) {
	v := NewValidator(testRegistry())

	tests := []struct {
		name string
		cs   models.ChangeSet
	}{
		{
			name: "empty update",
			cs:   models.ChangeSet{Action: models.ActionUpdate},
		},
		{
			name: "empty create",
			cs:   models.ChangeSet{Action: models.ActionCreate},
		},
		{
			name: "two member create",
			cs: models.ChangeSet{
				Action: models.ActionCreate,
				Records: []models.Record{
					models.NewRecord{Table: "delivery_fees", Attrs: map[string]any{"fee_cents": 1}},
					models.NewRecord{Table: "delivery_fees", Attrs: map[string]any{"fee_cents": 2}},
				},
			},
		},
		{
			name: "two member delete",
			cs: models.ChangeSet{
				Action: models.ActionDelete,
				Records: []models.Record{
					&deliveryFee{id: "1"},
					&deliveryFee{id: "2"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(testActor(), tt.cs)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidChangeSet)
		})
	}
}

func TestValidate_RejectsCreateIntoUnknownTable(t *testing.T) {
	v := NewValidator(testRegistry())
	cs := models.ChangeSet{
		Action: models.ActionCreate,
		Records: []models.Record{
			models.NewRecord{Table: "invoices", Attrs: map[string]any{"total": 100}},
		},
	}

	err := v.Validate(testActor(), cs)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnknownTable)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidChangeSet)
}

func TestValidate_RejectsCompositeKeys(t *testing.T) {
	v := NewValidator(testRegistry())

	t.Run("update", func(t *testing.T) {
		cs := models.ChangeSet{
			Action: models.ActionUpdate,
			Records: []models.Record{
				models.StoredRecord{Table: "profile_fee_links", Key: "10:3", Row: map[string]any{"position": 1}},
			},
		}
		err := v.Validate(testActor(), cs)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedKey)
	})

	t.Run("create", func(t *testing.T) {
		cs := models.ChangeSet{
			Action: models.ActionCreate,
			Records: []models.Record{
				models.NewRecord{Table: "profile_fee_links", Attrs: map[string]any{"position": 1}},
			},
		}
		err := v.Validate(testActor(), cs)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedKey)
	})
}

func TestValidate_RuleOrder(t *testing.T) {
	v := NewValidator(testRegistry())

	t.Run("actor before action", func(t *testing.T) {
		cs := models.ChangeSet{Action: "upsert"}
		err := v.Validate(models.Actor{}, cs)
		assert.ErrorIs(t, err, apperrors.ErrMisconfigured)
	})

	t.Run("action before members", func(t *testing.T) {
		cs := models.ChangeSet{Action: "upsert", Records: []models.Record{nil}}
		err := v.Validate(testActor(), cs)
		assert.ErrorIs(t, err, apperrors.ErrInvalidAction)
	})

	t.Run("members before cardinality", func(t *testing.T) {
		cs := models.ChangeSet{
			Action:  models.ActionDelete,
			Records: []models.Record{&deliveryFee{id: "1"}, nil},
		}
		err := v.Validate(testActor(), cs)
		require.ErrorIs(t, err, apperrors.ErrInvalidChangeSet)
		assert.Contains(t, err.Error(), "member 1")
	})

	t.Run("cardinality before create table check", func(t *testing.T) {
		cs := models.ChangeSet{
			Action: models.ActionCreate,
			Records: []models.Record{
				models.NewRecord{Table: "invoices"},
				models.NewRecord{Table: "invoices"},
			},
		}
		err := v.Validate(testActor(), cs)
		assert.ErrorIs(t, err, apperrors.ErrInvalidChangeSet)
	})
}
