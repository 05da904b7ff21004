// Package models contains domain types for auditrail-engine.
package models

import (
	"context"

	"github.com/google/uuid"
)

// ActorSource represents the surface through which a mutation was initiated.
type ActorSource string

// Actor source constants. These represent HOW an operation reached the engine.
const (
	SourceAPI       ActorSource = "api"       // Authenticated HTTP caller
	SourceConsole   ActorSource = "console"   // Operator console or admin CLI
	SourceJob       ActorSource = "job"       // Scheduled or background job
	SourceMigration ActorSource = "migration" // Data backfill or migration run
)

// String returns the string representation of an ActorSource.
func (s ActorSource) String() string {
	return string(s)
}

// IsValid returns true if the source is a valid actor source.
func (s ActorSource) IsValid() bool {
	switch s {
	case SourceAPI, SourceConsole, SourceJob, SourceMigration:
		return true
	default:
		return false
	}
}

// Actor identifies who a change-set is attributed to. Every audit entry
// produced from a change-set carries the actor's ID.
type Actor struct {
	// ID is the UUID of the acting user or principal. Required.
	ID uuid.UUID

	// Source indicates how the operation was initiated (api, console, job,
	// migration).
	Source ActorSource
}

// actorKey is the context key for storing the acting identity.
type actorKey struct{}

// WithActor returns a new context with the acting identity attached.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// GetActor retrieves the acting identity from the context.
// Returns the actor and true if present, otherwise a zero value and false.
func GetActor(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// MustGetActor retrieves the acting identity from the context.
// Panics if no actor is present. Use only when the actor is guaranteed to be
// set (e.g. after auth middleware).
func MustGetActor(ctx context.Context) Actor {
	a, ok := GetActor(ctx)
	if !ok {
		panic("actor required but not present in context")
	}
	return a
}

// WithAPIActor returns a context carrying an API-sourced actor.
// Use this in HTTP handlers after authentication.
func WithAPIActor(ctx context.Context, userID uuid.UUID) context.Context {
	return WithActor(ctx, Actor{ID: userID, Source: SourceAPI})
}

// WithConsoleActor returns a context carrying a console-sourced actor.
func WithConsoleActor(ctx context.Context, userID uuid.UUID) context.Context {
	return WithActor(ctx, Actor{ID: userID, Source: SourceConsole})
}

// WithJobActor returns a context carrying a job-sourced actor.
// Use this for scheduled work attributed to a service principal.
func WithJobActor(ctx context.Context, principalID uuid.UUID) context.Context {
	return WithActor(ctx, Actor{ID: principalID, Source: SourceJob})
}
