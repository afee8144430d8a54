package middleware

import (
	"context"
	"net/http"

	"project-planner/logging"
	"project-planner/models"
	"project-planner/services"
	"project-planner/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type projectKey struct{}
type taskKey struct{}

type ProjectLoader interface {
	GetProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
}

type TaskLoader interface {
	GetTask(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
}

// Access declares per-route authorization. The loaded resource is put in the
// request context so handlers never load it twice.
type Access struct {
	projects ProjectLoader
	tasks    TaskLoader
}

func NewAccess(projects ProjectLoader, tasks TaskLoader) *Access {
	return &Access{projects: projects, tasks: tasks}
}

// Project loads the project named by the {id} route variable and requires
// level on it. 400 on a malformed id, 404 if missing, 403 if denied.
func (a *Access) Project(level services.AccessLevel, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			utils.WriteError(w, utils.Unauthorized("Please authenticate"))
			return
		}
		id, err := utils.ParseObjectID(mux.Vars(r)["id"], "project ID")
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		project, err := a.projects.GetProject(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !services.Allowed(project, user.ID, level) {
			logging.Logger.Warnf("Event ID: PROJECT_ACCESS_DENIED, Description: User %s denied %s on project %s", user.ID.Hex(), r.Method, id.Hex())
			utils.WriteError(w, utils.Forbidden(projectDenied(r.Method)))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), projectKey{}, project)))
	})
}

// Task loads the task named by {id} and requires member access to its project.
func (a *Access) Task(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			utils.WriteError(w, utils.Unauthorized("Please authenticate"))
			return
		}
		id, err := utils.ParseObjectID(mux.Vars(r)["id"], "task ID")
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		task, err := a.tasks.GetTask(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		// a task whose project is gone is not accessible to anyone
		project, err := a.projects.GetProject(r.Context(), task.ProjectID)
		if err != nil || !services.HasAccess(project, user.ID) {
			if err != nil && !isNotFound(err) {
				writeServiceError(w, err)
				return
			}
			logging.Logger.Warnf("Event ID: TASK_ACCESS_DENIED, Description: User %s denied %s on task %s", user.ID.Hex(), r.Method, id.Hex())
			utils.WriteError(w, utils.Forbidden(taskDenied(r.Method)))
			return
		}
		ctx := context.WithValue(r.Context(), taskKey{}, task)
		ctx = context.WithValue(ctx, projectKey{}, project)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ProjectFromContext(ctx context.Context) (*models.Project, bool) {
	p, ok := ctx.Value(projectKey{}).(*models.Project)
	return p, ok
}

func TaskFromContext(ctx context.Context) (*models.Task, bool) {
	t, ok := ctx.Value(taskKey{}).(*models.Task)
	return t, ok
}

func projectDenied(method string) string {
	switch method {
	case http.MethodPatch, http.MethodPut:
		return "Not authorized to update this project"
	case http.MethodDelete:
		return "Not authorized to delete this project"
	}
	return "Not authorized to access this project"
}

func taskDenied(method string) string {
	switch method {
	case http.MethodPatch, http.MethodPut:
		return "Not authorized to update this task"
	case http.MethodDelete:
		return "Not authorized to delete this task"
	}
	return "Not authorized to access this task"
}

func isNotFound(err error) bool {
	status, _ := utils.StatusOf(err)
	return status == http.StatusNotFound
}

// writeServiceError logs server errors before writing the envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	if status, _ := utils.StatusOf(err); status >= http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: ACCESS_LOOKUP_FAILED, Description: %v", err)
	}
	utils.WriteError(w, err)
}
