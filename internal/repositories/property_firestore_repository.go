package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"realestate/internal/models"
)

// FirestorePropertyRepository stores listings as documents of one collection.
type FirestorePropertyRepository struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
	now    func() time.Time
}

// NewFirestorePropertyRepository creates a repository over collection.
func NewFirestorePropertyRepository(client *firestore.Client, collection string) *FirestorePropertyRepository {
	return &FirestorePropertyRepository{
		client: client,
		coll:   client.Collection(collection),
		now:    time.Now,
	}
}

func (r *FirestorePropertyRepository) fail(op string, err error) error {
	return &StoreError{Backend: "firestore", Op: op, Code: status.Code(err).String(), Err: err}
}

// GetAll returns every listing ordered by normalized title.
func (r *FirestorePropertyRepository) GetAll(ctx context.Context) ([]models.Property, error) {
	properties, err := r.collect(r.coll.OrderBy(FieldTitleNormalized, firestore.Asc).Documents(ctx))
	if err != nil {
		return nil, r.fail("get all", err)
	}
	return properties, nil
}

// GetByID reads a single document.
func (r *FirestorePropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	snap, err := r.coll.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFound(id)
		}
		return nil, r.fail("get", err)
	}
	p, err := decodeSnapshot(snap)
	if err != nil {
		return nil, r.fail("decode", err)
	}
	return p, nil
}

// Create adds a document with an auto-generated ID unless one is set.
func (r *FirestorePropertyRepository) Create(ctx context.Context, property *models.Property) error {
	ref := r.coll.NewDoc()
	if property.ID != "" {
		ref = r.coll.Doc(property.ID)
	}

	now := r.now()
	property.CreatedAt = now
	property.UpdatedAt = now
	fields := documentFields(property)
	fields["createdAt"] = now

	if _, err := ref.Create(ctx, fields); err != nil {
		return r.fail("create", err)
	}
	property.ID = ref.ID
	return nil
}

// Upsert merges the listing into its document, creating it if needed.
func (r *FirestorePropertyRepository) Upsert(ctx context.Context, property *models.Property) error {
	ref := r.coll.Doc(property.ID)
	property.UpdatedAt = r.now()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fields := documentFields(property)
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			property.CreatedAt = property.UpdatedAt
			fields["createdAt"] = property.CreatedAt
		case err != nil:
			return err
		default:
			if created, ok := snap.Data()["createdAt"].(time.Time); ok {
				property.CreatedAt = created
			}
		}
		return tx.Set(ref, fields, firestore.MergeAll)
	})
	if err != nil {
		return r.fail("upsert", err)
	}
	return nil
}

// Delete removes a document. Firestore treats missing documents as deleted.
func (r *FirestorePropertyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.Doc(id).Delete(ctx); err != nil {
		return r.fail("delete", err)
	}
	return nil
}

// Search translates plan into a Firestore query.
func (r *FirestorePropertyRepository) Search(ctx context.Context, plan SearchPlan) ([]models.Property, error) {
	q := r.coll.Query
	for _, c := range plan.Conditions {
		q = q.Where(c.Field, c.Op, c.Value)
	}
	for _, o := range plan.Orders {
		dir := firestore.Asc
		if o.Direction == models.SortDesc {
			dir = firestore.Desc
		}
		q = q.OrderBy(o.Field, dir)
	}

	properties, err := r.collect(q.Documents(ctx))
	if err != nil {
		return nil, r.fail("search", err)
	}
	return properties, nil
}

func (r *FirestorePropertyRepository) collect(iter *firestore.DocumentIterator) ([]models.Property, error) {
	defer iter.Stop()

	properties := make([]models.Property, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := decodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	return properties, nil
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (*models.Property, error) {
	var p models.Property
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("document %s: %w", snap.Ref.ID, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}
