package handlers

import (
	"net/http"

	"project-planner/logging"
	"project-planner/middleware"
	"project-planner/utils"
)

// respondError logs server-side failures with their cause and writes the envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := utils.StatusOf(err); status >= http.StatusInternalServerError {
		logging.Logger.WithField("request_id", middleware.GetRequestID(r.Context())).
			Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
	}
	utils.WriteError(w, err)
}

type messageResponse struct {
	Message string `json:"message"`
}
