package repository

import (
	"context"

	"github.com/evoctl/evoctl/pkg/model"
)

// Repository defines the interface for instance record persistence.
type Repository interface {
	// PutInstance saves a record, replacing any previous version.
	PutInstance(ctx context.Context, record *model.InstanceRecord) error

	// GetInstance retrieves a record by instance name.
	// Returns model.ErrInstanceNotFound when absent.
	GetInstance(ctx context.Context, name string) (*model.InstanceRecord, error)

	// ListInstances retrieves all records.
	ListInstances(ctx context.Context) ([]*model.InstanceRecord, error)

	// DeleteInstance removes a record. Administrative use only.
	DeleteInstance(ctx context.Context, name string) error
}
