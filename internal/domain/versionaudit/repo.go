package versionaudit

import "context"

// Repository persists the current version record. Only one record
// exists at a time; registering a new version supersedes it.
type Repository interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}
