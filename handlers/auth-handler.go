package handlers

import (
	"net/http"

	"project-planner/middleware"
	"project-planner/models"
	"project-planner/services"
	"project-planner/utils"
)

type AuthHandler struct {
	UserService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{UserService: userService}
}

type authResponse struct {
	User  models.UserSummary `json:"user"`
	Token string             `json:"token"`
}

type meResponse struct {
	User models.UserSummary `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	user, token, err := h.UserService.RegisterUser(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, authResponse{User: user.Summary(), Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		respondError(w, r, err)
		return
	}
	user, token, err := h.UserService.LoginUser(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, authResponse{User: user.Summary(), Token: token})
}

// Me vraca trenutno ulogovanog korisnika.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, utils.Unauthorized("Please authenticate"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, meResponse{User: user.Summary()})
}
