package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realestate/internal/models"
)

var mongoOps = map[string]string{
	OpGTE: "$gte",
	OpLTE: "$lte",
	OpEQ:  "$eq",
}

// MongoPropertyRepository keeps listings in a MongoDB collection keyed by _id.
type MongoPropertyRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoPropertyRepository(db *mongo.Database, collection string) *MongoPropertyRepository {
	return &MongoPropertyRepository{
		collection: db.Collection(collection),
		now:        time.Now,
	}
}

func (r *MongoPropertyRepository) fail(op string, err error) error {
	code := "internal"
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name != "" {
		code = cmdErr.Name
	}
	return &StoreError{Backend: "mongo", Op: op, Code: code, Err: err}
}

func (r *MongoPropertyRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Property, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	properties := make([]models.Property, 0)
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *MongoPropertyRepository) GetAll(ctx context.Context) ([]models.Property, error) {
	properties, err := r.find(ctx, bson.M{}, bson.D{{Key: FieldTitleNormalized, Value: 1}})
	if err != nil {
		return nil, r.fail("get all", err)
	}
	return properties, nil
}

func (r *MongoPropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(id)
		}
		return nil, r.fail("get", err)
	}
	return &property, nil
}

func (r *MongoPropertyRepository) Create(ctx context.Context, property *models.Property) error {
	if property.ID == "" {
		property.ID = NewPropertyID()
	}
	now := r.now()
	property.CreatedAt = now
	property.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, property); err != nil {
		return r.fail("create", err)
	}
	return nil
}

// Upsert sets every listing field and writes createdAt only on insert.
func (r *MongoPropertyRepository) Upsert(ctx context.Context, property *models.Property) error {
	now := r.now()
	property.UpdatedAt = now

	update := bson.M{
		"$set":         bson.M(documentFields(property)),
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": property.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return r.fail("upsert", err)
	}

	stored, err := r.GetByID(ctx, property.ID)
	if err != nil {
		return err
	}
	property.CreatedAt = stored.CreatedAt
	return nil
}

func (r *MongoPropertyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return r.fail("delete", err)
	}
	return nil
}

// Search merges conditions on the same field into one operator document.
func (r *MongoPropertyRepository) Search(ctx context.Context, plan SearchPlan) ([]models.Property, error) {
	filter := bson.M{}
	for _, c := range plan.Conditions {
		op, ok := mongoOps[c.Op]
		if !ok {
			return nil, r.fail("search", fmt.Errorf("unsupported operator %q", c.Op))
		}
		clause, _ := filter[c.Field].(bson.M)
		if clause == nil {
			clause = bson.M{}
			filter[c.Field] = clause
		}
		clause[op] = c.Value
	}

	sort := bson.D{}
	for _, o := range plan.Orders {
		dir := 1
		if o.Direction == models.SortDesc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}
	if len(sort) == 0 {
		sort = bson.D{{Key: "_id", Value: 1}}
	}

	properties, err := r.find(ctx, filter, sort)
	if err != nil {
		return nil, r.fail("search", err)
	}
	return properties, nil
}
