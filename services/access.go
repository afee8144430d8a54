package services

import (
	"project-planner/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessLevel is what a route needs from the caller on a project.
type AccessLevel int

const (
	// AccessMember: creator or listed member. Read, task create/edit/delete.
	AccessMember AccessLevel = iota
	// AccessOwner: creator only. Project update and delete.
	AccessOwner
)

// HasAccess is the single authorization predicate for projects and tasks.
func HasAccess(p *models.Project, userID primitive.ObjectID) bool {
	return p.CreatedBy == userID || p.HasMember(userID)
}

func IsOwner(p *models.Project, userID primitive.ObjectID) bool {
	return p.CreatedBy == userID
}

func Allowed(p *models.Project, userID primitive.ObjectID, level AccessLevel) bool {
	if level == AccessOwner {
		return IsOwner(p, userID)
	}
	return HasAccess(p, userID)
}
