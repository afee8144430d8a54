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

const errDateOrder = "Start date must be before or equal to end date"

// TaskFields is the allow-list of fields a caller may change on a task.
// Nil means unchanged.
type TaskFields struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	StartDate   *string `json:"startDate,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
}

func (f TaskFields) empty() bool {
	return f.Title == nil && f.Description == nil && f.Status == nil &&
		f.StartDate == nil && f.EndDate == nil && f.AssignedTo == nil
}

// UpdateTaskInput is TaskFields plus moving the task to another project.
type UpdateTaskInput struct {
	TaskFields
	ProjectID *string `json:"projectId,omitempty"`
}

type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	AssignedTo  string `json:"assignedTo"`
	ProjectID   string `json:"projectId"`
}

type BulkUpdateInput struct {
	IDs    []string   `json:"ids"`
	Update TaskFields `json:"update"`
}

type BulkDeleteInput struct {
	IDs []string `json:"ids"`
}

// TaskQuery holds the raw query string filters of the task listing.
type TaskQuery struct {
	ProjectID string
	Status    string
	StartDate string
	EndDate   string
}

type TaskService struct {
	tasks    repositories.TaskRepository
	projects repositories.ProjectRepository
	users    repositories.UserRepository
	now      func() time.Time
}

func NewTaskService(store *repositories.Store) *TaskService {
	return &TaskService{
		tasks:    store.Tasks,
		projects: store.Projects,
		users:    store.Users,
		now:      time.Now,
	}
}

func (s *TaskService) GetTask(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, utils.NotFound("Task not found")
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Expand(ctx context.Context, task *models.Task) (models.TaskView, error) {
	views, err := expandTasks(ctx, s.users, []models.Task{*task})
	if err != nil {
		return models.TaskView{}, err
	}
	return views[0], nil
}

// ListTasks returns tasks across every project the user can access.
func (s *TaskService) ListTasks(ctx context.Context, userID primitive.ObjectID, q TaskQuery) ([]models.TaskView, error) {
	var filter models.TaskFilter

	if q.ProjectID != "" {
		projectID, err := utils.ParseObjectID(q.ProjectID, "project ID")
		if err != nil {
			return nil, err
		}
		project, err := s.loadProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if !HasAccess(project, userID) {
			return nil, utils.Forbidden("Not authorized to access this project")
		}
		filter.ProjectIDs = []primitive.ObjectID{projectID}
	} else {
		projects, err := s.projects.FindForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		filter.ProjectIDs = make([]primitive.ObjectID, 0, len(projects))
		for _, p := range projects {
			filter.ProjectIDs = append(filter.ProjectIDs, p.ID)
		}
	}

	if q.Status != "" {
		status := models.TaskStatus(q.Status)
		if !status.Valid() {
			return nil, utils.BadRequest("Invalid status")
		}
		filter.Status = status
	}
	if q.StartDate != "" {
		from, ok := utils.ParseDate(q.StartDate)
		if !ok {
			return nil, utils.BadRequest("Invalid startDate")
		}
		filter.StartFrom = &from
	}
	if q.EndDate != "" {
		to, ok := utils.ParseDate(q.EndDate)
		if !ok {
			return nil, utils.BadRequest("Invalid endDate")
		}
		filter.EndBefore = &to
	}

	tasks, err := s.tasks.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return expandTasks(ctx, s.users, tasks)
}

func (s *TaskService) CreateTask(ctx context.Context, userID primitive.ObjectID, in CreateTaskInput) (models.TaskView, error) {
	projectID, err := utils.ParseObjectID(in.ProjectID, "project ID")
	if err != nil {
		return models.TaskView{}, err
	}
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return models.TaskView{}, err
	}
	if !HasAccess(project, userID) {
		return models.TaskView{}, utils.Forbidden("Not authorized to create tasks in this project")
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" || in.StartDate == "" || in.EndDate == "" || in.AssignedTo == "" {
		return models.TaskView{}, utils.BadRequest("Missing required fields")
	}

	status := models.StatusTodo
	if in.Status != "" {
		status = models.TaskStatus(in.Status)
		if !status.Valid() {
			return models.TaskView{}, utils.BadRequest("Invalid status")
		}
	}
	start, ok := utils.ParseDate(in.StartDate)
	if !ok {
		return models.TaskView{}, utils.BadRequest("Invalid startDate")
	}
	end, ok := utils.ParseDate(in.EndDate)
	if !ok {
		return models.TaskView{}, utils.BadRequest("Invalid endDate")
	}
	if start.After(end) {
		return models.TaskView{}, utils.BadRequest(errDateOrder)
	}
	assignee, err := s.resolveAssignee(ctx, in.AssignedTo)
	if err != nil {
		return models.TaskView{}, err
	}

	ts := s.now().UTC()
	task := &models.Task{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		Status:      status,
		StartDate:   start,
		EndDate:     end,
		AssignedTo:  assignee,
		CreatedBy:   userID,
		ProjectID:   project.ID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return models.TaskView{}, fmt.Errorf("failed to create task: %w", err)
	}
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in project %s", task.ID.Hex(), project.ID.Hex())
	return s.Expand(ctx, task)
}

// UpdateTask applies in to a task the caller is already authorized for.
func (s *TaskService) UpdateTask(ctx context.Context, userID primitive.ObjectID, task *models.Task, in UpdateTaskInput) (models.TaskView, error) {
	if in.TaskFields.empty() && in.ProjectID == nil {
		return models.TaskView{}, utils.BadRequest("No fields to update")
	}
	patch, err := s.buildPatch(ctx, in.TaskFields)
	if err != nil {
		return models.TaskView{}, err
	}

	updated := *task
	patch.Apply(&updated)
	if updated.StartDate.After(updated.EndDate) {
		return models.TaskView{}, utils.BadRequest(errDateOrder)
	}

	if in.ProjectID != nil {
		projectID, err := utils.ParseObjectID(*in.ProjectID, "project ID")
		if err != nil {
			return models.TaskView{}, err
		}
		if projectID != task.ProjectID {
			target, err := s.loadProject(ctx, projectID)
			if err != nil {
				return models.TaskView{}, err
			}
			if !HasAccess(target, userID) {
				return models.TaskView{}, utils.Forbidden("Not authorized to move tasks to this project")
			}
			updated.ProjectID = projectID
		}
	}
	updated.UpdatedAt = s.now().UTC()

	if err := s.tasks.Update(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TaskView{}, utils.NotFound("Task not found")
		}
		return models.TaskView{}, fmt.Errorf("failed to update task: %w", err)
	}
	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s updated", updated.ID.Hex())
	return s.Expand(ctx, &updated)
}

func (s *TaskService) DeleteTask(ctx context.Context, task *models.Task) error {
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return utils.NotFound("Task not found")
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted", task.ID.Hex())
	return nil
}

// BulkUpdate writes one patch to every listed task. Nothing is written unless
// the caller can access every owning project and every merged date range is
// valid. Unknown ids are skipped.
func (s *TaskService) BulkUpdate(ctx context.Context, userID primitive.ObjectID, in BulkUpdateInput) (int64, error) {
	ids, err := parseBulkIDs(in.IDs)
	if err != nil {
		return 0, err
	}
	if in.Update.empty() {
		return 0, utils.BadRequest("No fields to update")
	}
	patch, err := s.buildPatch(ctx, in.Update)
	if err != nil {
		return 0, err
	}

	tasks, err := s.authorizeBulk(ctx, userID, ids, "Not authorized to update some of these tasks")
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	found := make([]primitive.ObjectID, 0, len(tasks))
	for _, t := range tasks {
		merged := t
		patch.Apply(&merged)
		if merged.StartDate.After(merged.EndDate) {
			return 0, utils.BadRequest(errDateOrder)
		}
		found = append(found, t.ID)
	}

	modified, err := s.tasks.UpdateMany(ctx, found, patch)
	if err != nil {
		return 0, fmt.Errorf("failed to update tasks: %w", err)
	}
	logging.Logger.Infof("Event ID: TASKS_BULK_UPDATED, Description: %d tasks updated by %s", modified, userID.Hex())
	return modified, nil
}

func (s *TaskService) BulkDelete(ctx context.Context, userID primitive.ObjectID, in BulkDeleteInput) (int64, error) {
	ids, err := parseBulkIDs(in.IDs)
	if err != nil {
		return 0, err
	}
	tasks, err := s.authorizeBulk(ctx, userID, ids, "Not authorized to delete some of these tasks")
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	found := make([]primitive.ObjectID, 0, len(tasks))
	for _, t := range tasks {
		found = append(found, t.ID)
	}
	deleted, err := s.tasks.DeleteMany(ctx, found)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	logging.Logger.Infof("Event ID: TASKS_BULK_DELETED, Description: %d tasks deleted by %s", deleted, userID.Hex())
	return deleted, nil
}

// authorizeBulk loads the tasks and checks access on the union of their
// projects. A project that no longer exists counts as inaccessible.
func (s *TaskService) authorizeBulk(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, denied string) ([]models.Task, error) {
	tasks, err := s.tasks.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	var projectIDs []primitive.ObjectID
	for _, t := range tasks {
		projectIDs = appendUnique(projectIDs, t.ProjectID)
	}
	if len(projectIDs) == 0 {
		return tasks, nil
	}

	projects, err := s.projects.FindByIDs(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	if len(projects) != len(projectIDs) {
		logging.Logger.Warnf("Event ID: BULK_ACCESS_DENIED, Description: User %s referenced tasks of a missing project", userID.Hex())
		return nil, utils.Forbidden(denied)
	}
	for i := range projects {
		if !HasAccess(&projects[i], userID) {
			logging.Logger.Warnf("Event ID: BULK_ACCESS_DENIED, Description: User %s has no access to project %s", userID.Hex(), projects[i].ID.Hex())
			return nil, utils.Forbidden(denied)
		}
	}
	return tasks, nil
}

// buildPatch validates the allow-listed fields and converts them to a patch.
func (s *TaskService) buildPatch(ctx context.Context, f TaskFields) (models.TaskPatch, error) {
	var patch models.TaskPatch
	if f.Title != nil {
		title := strings.TrimSpace(*f.Title)
		if title == "" {
			return patch, utils.BadRequest("Title cannot be empty")
		}
		patch.Title = &title
	}
	if f.Description != nil {
		description := strings.TrimSpace(*f.Description)
		if description == "" {
			return patch, utils.BadRequest("Description cannot be empty")
		}
		patch.Description = &description
	}
	if f.Status != nil {
		status := models.TaskStatus(*f.Status)
		if !status.Valid() {
			return patch, utils.BadRequest("Invalid status")
		}
		patch.Status = &status
	}
	if f.StartDate != nil {
		start, ok := utils.ParseDate(*f.StartDate)
		if !ok {
			return patch, utils.BadRequest("Invalid startDate")
		}
		patch.StartDate = &start
	}
	if f.EndDate != nil {
		end, ok := utils.ParseDate(*f.EndDate)
		if !ok {
			return patch, utils.BadRequest("Invalid endDate")
		}
		patch.EndDate = &end
	}
	if f.AssignedTo != nil {
		assignee, err := s.resolveAssignee(ctx, *f.AssignedTo)
		if err != nil {
			return patch, err
		}
		patch.AssignedTo = &assignee
	}
	return patch, nil
}

func (s *TaskService) resolveAssignee(ctx context.Context, raw string) (primitive.ObjectID, error) {
	id, err := utils.ParseObjectID(raw, "assignedTo")
	if err != nil {
		return primitive.NilObjectID, err
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return primitive.NilObjectID, utils.BadRequest("Assigned user not found")
		}
		return primitive.NilObjectID, fmt.Errorf("failed to load assignee: %w", err)
	}
	return id, nil
}

func (s *TaskService) loadProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, utils.NotFound("Project not found")
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return project, nil
}

func parseBulkIDs(raw []string) ([]primitive.ObjectID, error) {
	if len(raw) == 0 {
		return nil, utils.BadRequest("Invalid task IDs")
	}
	ids, err := utils.ParseObjectIDs(raw, "task IDs")
	if err != nil {
		return nil, err
	}
	return appendUnique(nil, ids...), nil
}
