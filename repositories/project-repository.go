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

type MongoProjectRepository struct {
	collection *mongo.Collection
}

func NewMongoProjectRepository(collection *mongo.Collection) *MongoProjectRepository {
	return &MongoProjectRepository{collection: collection}
}

func (r *MongoProjectRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
		{Keys: bson.D{{Key: "members", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create project indexes: %w", err)
	}
	return nil
}

func (r *MongoProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *MongoProjectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&project); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching project: %w", err)
	}
	return &project, nil
}

func (r *MongoProjectRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	if len(ids) == 0 {
		return []models.Project{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoProjectRepository) FindForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"createdBy": userID},
		bson.M{"members": userID},
	}})
}

func (r *MongoProjectRepository) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("unsuccessful procurement of projects: %w", err)
	}
	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("unsuccessful decoding of projects: %w", err)
	}
	return projects, nil
}

func (r *MongoProjectRepository) Update(ctx context.Context, project *models.Project) error {
	update := bson.M{"$set": bson.M{
		"name":        project.Name,
		"description": project.Description,
		"members":     project.Members,
		"updatedAt":   project.UpdatedAt,
	}}
	result, err := r.collection.UpdateByID(ctx, project.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProjectRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
