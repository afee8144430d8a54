package client

import (
	"context"
	"errors"
	"fmt"

	"project-planner/models"
	"project-planner/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier receives transient success and error notifications.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type discardNotifier struct{}

func (discardNotifier) Success(string) {}
func (discardNotifier) Error(string)   {}

// Session keeps the Store in sync with the server: reads are served from the
// store while fresh, and every mutation invalidates and refetches what it
// touched.
type Session struct {
	api    *Client
	store  *Store
	notify Notifier
}

func NewSession(api *Client, store *Store, notify Notifier) *Session {
	if notify == nil {
		notify = discardNotifier{}
	}
	return &Session{api: api, store: store, notify: notify}
}

func (s *Session) Store() *Store { return s.store }

func (s *Session) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.api.Login(ctx, services.LoginInput{Email: email, Password: password})
	if err != nil {
		s.notify.Error(Message(err, "Login failed"))
		return nil, err
	}
	s.store.Reset()
	s.notify.Success("Logged in as " + res.User.FullName)
	return res, nil
}

func (s *Session) Register(ctx context.Context, in services.RegisterInput) (*AuthResult, error) {
	res, err := s.api.Register(ctx, in)
	if err != nil {
		s.notify.Error(Message(err, "Registration failed"))
		return nil, err
	}
	s.store.Reset()
	s.notify.Success("Account created successfully")
	return res, nil
}

func (s *Session) Logout() error {
	s.store.Reset()
	if err := s.api.Logout(); err != nil {
		return s.fail(err, "Logout failed")
	}
	s.notify.Success("Logged out")
	return nil
}

// Projects returns the cached projects, fetching when stale.
func (s *Session) Projects(ctx context.Context) ([]models.ProjectView, error) {
	if list, fresh := s.store.Projects(); fresh {
		return list, nil
	}
	return s.refetchProjects(ctx)
}

// SelectProject makes id the active project and loads its tasks.
func (s *Session) SelectProject(ctx context.Context, id primitive.ObjectID) ([]models.TaskView, error) {
	if _, err := s.Projects(ctx); err != nil {
		return nil, err
	}
	if _, ok := s.store.Project(id); !ok {
		err := fmt.Errorf("project %s not found", id.Hex())
		s.notify.Error("Project not found")
		return nil, err
	}
	s.store.SetActiveProject(id)
	return s.Tasks(ctx)
}

// Tasks returns the active project's tasks, fetching when stale.
func (s *Session) Tasks(ctx context.Context) ([]models.TaskView, error) {
	active := s.store.ActiveProject()
	if active.IsZero() {
		return []models.TaskView{}, nil
	}
	if list, fresh := s.store.Tasks(active); fresh {
		return list, nil
	}
	return s.refetchTasks(ctx, active)
}

func (s *Session) CreateProject(ctx context.Context, in services.CreateProjectInput) (*models.ProjectView, error) {
	p, err := s.api.CreateProject(ctx, in)
	if err != nil {
		return nil, s.fail(err, "Failed to create project")
	}
	s.store.InvalidateProjects()
	s.notify.Success("Project created successfully")
	_, err = s.refetchProjects(ctx)
	return p, err
}

func (s *Session) UpdateProject(ctx context.Context, id primitive.ObjectID, in services.UpdateProjectInput) (*models.ProjectView, error) {
	p, err := s.api.UpdateProject(ctx, id, in)
	if err != nil {
		return nil, s.fail(err, "Failed to update project")
	}
	s.store.InvalidateProjects()
	s.notify.Success("Project updated successfully")
	_, err = s.refetchProjects(ctx)
	return p, err
}

func (s *Session) DeleteProject(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.api.DeleteProject(ctx, id); err != nil {
		return s.fail(err, "Failed to delete project")
	}
	s.store.InvalidateProjects()
	s.store.InvalidateTasks(id)
	s.notify.Success("Project deleted successfully")
	_, err := s.refetchProjects(ctx)
	return err
}

// CreateTask adds a task to the active project.
func (s *Session) CreateTask(ctx context.Context, in services.CreateTaskInput) (*models.TaskView, error) {
	active := s.store.ActiveProject()
	if in.ProjectID == "" {
		if active.IsZero() {
			s.notify.Error("No project selected")
			return nil, errors.New("no project selected")
		}
		in.ProjectID = active.Hex()
	}
	t, err := s.api.CreateTask(ctx, in)
	if err != nil {
		return nil, s.fail(err, "Failed to create task")
	}
	s.notify.Success("Task created successfully")
	return t, s.syncTasks(ctx, t.ProjectID)
}

func (s *Session) UpdateTask(ctx context.Context, id primitive.ObjectID, in services.UpdateTaskInput) (*models.TaskView, error) {
	owners := s.store.TaskProjects(id)
	t, err := s.api.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, s.fail(err, "Failed to update task")
	}
	s.notify.Success("Task updated successfully")
	// a move touches the old project too
	return t, s.syncTasks(ctx, append(owners, t.ProjectID)...)
}

func (s *Session) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	owners := s.store.TaskProjects(id)
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return s.fail(err, "Failed to delete task")
	}
	s.notify.Success("Task deleted successfully")
	return s.syncTasks(ctx, owners...)
}

func (s *Session) BulkUpdateTasks(ctx context.Context, ids []primitive.ObjectID, update services.TaskFields) (int64, error) {
	owners := s.store.TaskProjects(ids...)
	n, err := s.api.BulkUpdateTasks(ctx, ids, update)
	if err != nil {
		return 0, s.fail(err, "Failed to update tasks")
	}
	s.notify.Success(fmt.Sprintf("%d tasks updated successfully", len(ids)))
	return n, s.syncTasks(ctx, owners...)
}

func (s *Session) BulkDeleteTasks(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	owners := s.store.TaskProjects(ids...)
	n, err := s.api.BulkDeleteTasks(ctx, ids)
	if err != nil {
		return 0, s.fail(err, "Failed to delete tasks")
	}
	s.notify.Success(fmt.Sprintf("%d tasks deleted successfully", len(ids)))
	return n, s.syncTasks(ctx, owners...)
}

// syncTasks invalidates the given projects' tasks and refetches the active
// one if it is among them.
func (s *Session) syncTasks(ctx context.Context, projectIDs ...primitive.ObjectID) error {
	active := s.store.ActiveProject()
	refetch := false
	for _, id := range projectIDs {
		if id.IsZero() {
			continue
		}
		s.store.InvalidateTasks(id)
		if id == active {
			refetch = true
		}
	}
	if !refetch {
		return nil
	}
	_, err := s.refetchTasks(ctx, active)
	return err
}

func (s *Session) refetchProjects(ctx context.Context) ([]models.ProjectView, error) {
	list, err := s.api.ListProjects(ctx)
	if err != nil {
		return nil, s.fail(err, "Failed to fetch projects")
	}
	s.store.SetProjects(list)
	return list, nil
}

func (s *Session) refetchTasks(ctx context.Context, projectID primitive.ObjectID) ([]models.TaskView, error) {
	list, err := s.api.ProjectTasks(ctx, projectID)
	if err != nil {
		return nil, s.fail(err, "Failed to fetch tasks")
	}
	s.store.SetTasks(projectID, list)
	return list, nil
}

// fail reports err. A 401 also wipes local state; the client has already
// cleared the credentials.
func (s *Session) fail(err error, fallback string) error {
	if errors.Is(err, ErrUnauthorized) {
		s.store.Reset()
		s.notify.Error("Session expired, please log in again")
		return err
	}
	s.notify.Error(Message(err, fallback))
	return err
}
