package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskmanager/internal/model"
	"taskmanager/internal/query"
)

const tasksCollection = "tasks"

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	DueDate     time.Time          `bson:"dueDate"`
	UserID      *string            `bson:"userId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d taskDocument) toModel() model.Task {
	return model.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      model.Status(d.Status),
		DueDate:     d.DueDate.UTC(),
		OwnerID:     d.UserID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type MongoTaskRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ TaskRepository = (*MongoTaskRepository)(nil)

func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(tasksCollection), now: time.Now}
}

// EnsureIndexes creates the indexes list queries rely on.
func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

// Create inserts a new task document
func (r *MongoTaskRepository) Create(ctx context.Context, task model.NewTask, ownerID *string) (*model.Task, error) {
	// BSON dates keep millisecond precision
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		DueDate:     task.DueDate.UTC().Truncate(time.Millisecond),
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}

	created := doc.toModel()
	return &created, nil
}

// List returns every matching task, most recently created first
func (r *MongoTaskRepository) List(ctx context.Context, p query.Predicate) ([]model.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, taskFilter(p), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toModel())
	}
	return tasks, nil
}

// GetOne retrieves a task by its ID within the predicate
func (r *MongoTaskRepository) GetOne(ctx context.Context, id string, p query.Predicate) (*model.Task, error) {
	filter, err := taskIDFilter(id, p)
	if err != nil {
		return nil, err
	}

	var doc taskDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task := doc.toModel()
	return &task, nil
}

// Update applies the patch and returns the document as it is after the update
func (r *MongoTaskRepository) Update(ctx context.Context, id string, p query.Predicate, patch model.TaskPatch) (*model.Task, error) {
	filter, err := taskIDFilter(id, p)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": r.now().UTC().Truncate(time.Millisecond)}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.DueDate != nil {
		set["dueDate"] = patch.DueDate.UTC().Truncate(time.Millisecond)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task := doc.toModel()
	return &task, nil
}

// Delete removes a task by its ID within the predicate
func (r *MongoTaskRepository) Delete(ctx context.Context, id string, p query.Predicate) error {
	filter, err := taskIDFilter(id, p)
	if err != nil {
		return err
	}

	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// taskFilter translates a predicate into a BSON filter. Search text is
// quoted so it always matches literally.
func taskFilter(p query.Predicate) bson.M {
	filter := bson.M{}

	if p.Status != nil {
		filter["status"] = string(*p.Status)
	}

	if p.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(p.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	if p.OwnerID != nil {
		filter["userId"] = *p.OwnerID
	}

	return filter
}

func taskIDFilter(id string, p query.Predicate) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	filter := taskFilter(p)
	filter["_id"] = oid
	return filter, nil
}
