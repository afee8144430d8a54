package handlers

import (
	"net/http"

	"project-planner/middleware"
	"project-planner/services"
	"project-planner/utils"
)

type TaskHandler struct {
	Service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{Service: service}
}

type bulkResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	q := r.URL.Query()
	tasks, err := h.Service.ListTasks(r.Context(), user.ID, services.TaskQuery{
		ProjectID: q.Get("projectId"),
		Status:    q.Get("status"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var in services.CreateTaskInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	task, err := h.Service.CreateTask(r.Context(), user.ID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, _ := middleware.TaskFromContext(r.Context())
	view, err := h.Service.Expand(r.Context(), task)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// UpdateTask only accepts allow-listed fields; anything else is a 400.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	task, _ := middleware.TaskFromContext(r.Context())
	var in services.UpdateTaskInput
	if err := utils.DecodeJSON(r, &in, true); err != nil {
		respondError(w, r, err)
		return
	}
	view, err := h.Service.UpdateTask(r.Context(), user.ID, task, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, _ := middleware.TaskFromContext(r.Context())
	if err := h.Service.DeleteTask(r.Context(), task); err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}

func (h *TaskHandler) BulkUpdateTasks(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var in services.BulkUpdateInput
	if err := utils.DecodeJSON(r, &in, true); err != nil {
		respondError(w, r, err)
		return
	}
	modified, err := h.Service.BulkUpdate(r.Context(), user.ID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, bulkResponse{ModifiedCount: modified})
}

func (h *TaskHandler) BulkDeleteTasks(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var in services.BulkDeleteInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	deleted, err := h.Service.BulkDelete(r.Context(), user.ID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, bulkResponse{ModifiedCount: deleted})
}
