package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection    = "users"
	ProjectsCollection = "projects"
	TasksCollection    = "tasks"
)

// NewMongoStore wires the repositories to db and creates their indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	users := NewMongoUserRepository(db.Collection(UsersCollection))
	projects := NewMongoProjectRepository(db.Collection(ProjectsCollection))
	tasks := NewMongoTaskRepository(db.Collection(TasksCollection))

	for _, ix := range []interface {
		EnsureIndexes(context.Context) error
	}{users, projects, tasks} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
	}

	client := db.Client()
	return &Store{
		Users:    users,
		Projects: projects,
		Tasks:    tasks,
		Ping: func(ctx context.Context) error {
			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				return fmt.Errorf("mongo ping failed: %w", err)
			}
			return nil
		},
	}, nil
}
