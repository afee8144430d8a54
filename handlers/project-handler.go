package handlers

import (
	"net/http"

	"project-planner/middleware"
	"project-planner/services"
	"project-planner/utils"
)

type ProjectHandler struct {
	Service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Service: service}
}

type deleteProjectResponse struct {
	Message      string `json:"message"`
	DeletedTasks int64  `json:"deletedTasks"`
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	projects, err := h.Service.ListProjects(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var in services.CreateProjectInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	project, err := h.Service.CreateProject(r.Context(), user.ID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, project)
}

// Handlers below run behind Access.Project, which has already loaded the project.

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, _ := middleware.ProjectFromContext(r.Context())
	view, err := h.Service.Expand(r.Context(), project)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project, _ := middleware.ProjectFromContext(r.Context())
	var in services.UpdateProjectInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	view, err := h.Service.UpdateProject(r.Context(), project, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	project, _ := middleware.ProjectFromContext(r.Context())
	deleted, err := h.Service.DeleteProject(r.Context(), project)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, deleteProjectResponse{
		Message:      "Project and associated tasks deleted successfully",
		DeletedTasks: deleted,
	})
}

func (h *ProjectHandler) GetProjectTasks(w http.ResponseWriter, r *http.Request) {
	project, _ := middleware.ProjectFromContext(r.Context())
	tasks, err := h.Service.ProjectTasks(r.Context(), project)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tasks)
}
