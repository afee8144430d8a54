package repositories

import (
	"context"
	"errors"
	"fmt"

	"project-planner/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTaskRepository struct {
	collection *mongo.Collection
}

func NewMongoTaskRepository(collection *mongo.Collection) *MongoTaskRepository {
	return &MongoTaskRepository{collection: collection}
}

func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "projectId", Value: 1}}},
		{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "startDate", Value: 1}, {Key: "endDate", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return &task, nil
}

func (r *MongoTaskRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Task, error) {
	if len(ids) == 0 {
		return []models.Task{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoTaskRepository) Find(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return r.find(ctx, taskQuery(filter))
}

func taskQuery(filter models.TaskFilter) bson.M {
	query := bson.M{}
	if filter.ProjectIDs != nil {
		query["projectId"] = bson.M{"$in": filter.ProjectIDs}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.StartFrom != nil {
		query["startDate"] = bson.M{"$gte": *filter.StartFrom}
	}
	if filter.EndBefore != nil {
		query["endDate"] = bson.M{"$lte": *filter.EndBefore}
	}
	return query
}

func (r *MongoTaskRepository) find(ctx context.Context, query bson.M) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, task *models.Task) error {
	update := bson.M{"$set": bson.M{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"startDate":   task.StartDate,
		"endDate":     task.EndDate,
		"assignedTo":  task.AssignedTo,
		"projectId":   task.ProjectID,
		"updatedAt":   task.UpdatedAt,
	}}
	result, err := r.collection.UpdateByID(ctx, task.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func patchDocument(patch models.TaskPatch) bson.M {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.StartDate != nil {
		set["startDate"] = *patch.StartDate
	}
	if patch.EndDate != nil {
		set["endDate"] = *patch.EndDate
	}
	if patch.AssignedTo != nil {
		set["assignedTo"] = *patch.AssignedTo
	}
	return set
}

func (r *MongoTaskRepository) UpdateMany(ctx context.Context, ids []primitive.ObjectID, patch models.TaskPatch) (int64, error) {
	if patch.Empty() || len(ids) == 0 {
		return 0, nil
	}
	set := patchDocument(patch)
	set["updatedAt"] = now()
	result, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("failed to update tasks: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTaskRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoTaskRepository) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return result.DeletedCount, nil
}
