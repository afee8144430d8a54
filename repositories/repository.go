package repositories

import (
	"context"
	"errors"
	"time"

	"project-planner/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	// Create inserts the user, returning ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByIDs returns the users that exist; unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error)
	// FindForUser returns projects the user created or is a member of, newest first.
	FindForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Task, error)
	// Find returns matching tasks, newest first.
	Find(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	UpdateMany(ctx context.Context, ids []primitive.ObjectID, patch models.TaskPatch) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error)
}

// Store groups the three collections.
type Store struct {
	Users    UserRepository
	Projects ProjectRepository
	Tasks    TaskRepository
	// Ping checks the backing database; nil for in-memory storage.
	Ping func(ctx context.Context) error
}

var now = func() time.Time { return time.Now().UTC() }

// newer orders documents newest first; ties fall back to the ObjectID, which
// embeds the creation second.
func newer(a time.Time, aID primitive.ObjectID, b time.Time, bID primitive.ObjectID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID.Hex() > bID.Hex()
}
