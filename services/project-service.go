package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"project-planner/logging"
	"project-planner/models"
	"project-planner/repositories"
	"project-planner/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateProjectInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

// UpdateProjectInput: nil fields are left unchanged.
type UpdateProjectInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Members     *[]string `json:"members"`
}

type ProjectService struct {
	projects repositories.ProjectRepository
	tasks    repositories.TaskRepository
	users    repositories.UserRepository
	now      func() time.Time
}

func NewProjectService(store *repositories.Store) *ProjectService {
	return &ProjectService{
		projects: store.Projects,
		tasks:    store.Tasks,
		users:    store.Users,
		now:      time.Now,
	}
}

// GetProject loads a project by id without checking access.
func (s *ProjectService) GetProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, utils.NotFound("Project not found")
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return project, nil
}

// ListProjects returns every project the user created or belongs to.
func (s *ProjectService) ListProjects(ctx context.Context, userID primitive.ObjectID) ([]models.ProjectView, error) {
	projects, err := s.projects.FindForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return expandProjects(ctx, s.users, projects)
}

func (s *ProjectService) Expand(ctx context.Context, project *models.Project) (models.ProjectView, error) {
	views, err := expandProjects(ctx, s.users, []models.Project{*project})
	if err != nil {
		return models.ProjectView{}, err
	}
	return views[0], nil
}

func (s *ProjectService) CreateProject(ctx context.Context, userID primitive.ObjectID, in CreateProjectInput) (models.ProjectView, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" || description == "" {
		return models.ProjectView{}, utils.BadRequest("Name and description are required")
	}
	members, err := s.resolveMembers(ctx, in.Members)
	if err != nil {
		return models.ProjectView{}, err
	}

	ts := s.now().UTC()
	project := &models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: description,
		CreatedBy:   userID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	project.SetMembers(members)

	if err := s.projects.Create(ctx, project); err != nil {
		return models.ProjectView{}, fmt.Errorf("failed to create project: %w", err)
	}
	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created by %s", project.ID.Hex(), userID.Hex())
	return s.Expand(ctx, project)
}

// UpdateProject applies in to an already authorized project.
func (s *ProjectService) UpdateProject(ctx context.Context, project *models.Project, in UpdateProjectInput) (models.ProjectView, error) {
	updated := *project
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.ProjectView{}, utils.BadRequest("Project name cannot be empty")
		}
		updated.Name = name
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return models.ProjectView{}, utils.BadRequest("Project description cannot be empty")
		}
		updated.Description = description
	}
	if in.Members != nil {
		members, err := s.resolveMembers(ctx, *in.Members)
		if err != nil {
			return models.ProjectView{}, err
		}
		updated.SetMembers(members)
	}
	updated.UpdatedAt = s.now().UTC()

	if err := s.projects.Update(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ProjectView{}, utils.NotFound("Project not found")
		}
		return models.ProjectView{}, fmt.Errorf("failed to update project: %w", err)
	}
	logging.Logger.Infof("Event ID: PROJECT_UPDATED, Description: Project %s updated", updated.ID.Hex())
	return s.Expand(ctx, &updated)
}

// DeleteProject removes the project and every task that references it.
// Tasks are swept a second time after the project is gone so a task created
// in between is not left orphaned.
func (s *ProjectService) DeleteProject(ctx context.Context, project *models.Project) (int64, error) {
	deleted, err := s.tasks.DeleteByProject(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	if err := s.projects.Delete(ctx, project.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return deleted, utils.NotFound("Project not found")
		}
		return deleted, fmt.Errorf("failed to delete project: %w", err)
	}
	late, err := s.tasks.DeleteByProject(ctx, project.ID)
	if err != nil {
		logging.Logger.Errorf("Event ID: PROJECT_TASK_SWEEP_FAILED, Description: Project %s deleted but task sweep failed: %v", project.ID.Hex(), err)
		return deleted, fmt.Errorf("failed to sweep project tasks: %w", err)
	}
	deleted += late

	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s deleted with %d tasks", project.ID.Hex(), deleted)
	return deleted, nil
}

// ProjectTasks returns the project's tasks, newest first.
func (s *ProjectService) ProjectTasks(ctx context.Context, project *models.Project) ([]models.TaskView, error) {
	tasks, err := s.tasks.Find(ctx, models.TaskFilter{ProjectIDs: []primitive.ObjectID{project.ID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}
	return expandTasks(ctx, s.users, tasks)
}

// resolveMembers validates ids and checks that each one names a real user.
func (s *ProjectService) resolveMembers(ctx context.Context, raw []string) ([]primitive.ObjectID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids, err := utils.ParseObjectIDs(raw, "member IDs")
	if err != nil {
		return nil, err
	}
	ids = appendUnique(nil, ids...)
	found, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	if len(found) != len(ids) {
		return nil, utils.BadRequest("Invalid member IDs")
	}
	return ids, nil
}
