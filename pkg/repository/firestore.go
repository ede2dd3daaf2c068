package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/evoctl/evoctl/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const instanceCollection = "instances"

// firestoreRepo implements Repository on Firestore, for deployments that
// need the record store off the local disk.
type firestoreRepo struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed repository.
func NewFirestore(ctx context.Context, projectID, databaseID string) (Repository, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &firestoreRepo{client: client}, nil
}

func (r *firestoreRepo) PutInstance(ctx context.Context, record *model.InstanceRecord) error {
	doc := r.client.Collection(instanceCollection).Doc(record.Name)
	if _, err := doc.Set(ctx, record); err != nil {
		return goerr.Wrap(model.ErrPersistenceFailure, err.Error(), goerr.V("instance", record.Name))
	}
	return nil
}

func (r *firestoreRepo) GetInstance(ctx context.Context, name string) (*model.InstanceRecord, error) {
	snap, err := r.client.Collection(instanceCollection).Doc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrInstanceNotFound, "no such instance", goerr.V("instance", name))
		}
		return nil, goerr.Wrap(err, "failed to get instance", goerr.V("instance", name))
	}

	var record model.InstanceRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, goerr.Wrap(err, "failed to decode instance", goerr.V("instance", name))
	}

	return &record, nil
}

func (r *firestoreRepo) ListInstances(ctx context.Context) ([]*model.InstanceRecord, error) {
	iter := r.client.Collection(instanceCollection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []*model.InstanceRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate instances")
		}

		var record model.InstanceRecord
		if err := snap.DataTo(&record); err != nil {
			return nil, goerr.Wrap(err, "failed to decode instance", goerr.V("doc", snap.Ref.ID))
		}
		records = append(records, &record)
	}

	return records, nil
}

func (r *firestoreRepo) DeleteInstance(ctx context.Context, name string) error {
	if _, err := r.client.Collection(instanceCollection).Doc(name).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete instance", goerr.V("instance", name))
	}
	return nil
}
