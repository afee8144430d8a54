package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slices"
)

type Project struct {
	ID          primitive.ObjectID   `json:"_id,omitempty" bson:"_id,omitempty"`
	Name        string               `json:"name" bson:"name"`
	Description string               `json:"description" bson:"description"`
	CreatedBy   primitive.ObjectID   `json:"createdBy" bson:"createdBy"`
	Members     []primitive.ObjectID `json:"members" bson:"members"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// HasMember reports whether userID is listed in the member set.
func (p *Project) HasMember(userID primitive.ObjectID) bool {
	return slices.Contains(p.Members, userID)
}

// SetMembers replaces the member set, dropping duplicates and always keeping
// the creator first.
func (p *Project) SetMembers(ids []primitive.ObjectID) {
	members := make([]primitive.ObjectID, 0, len(ids)+1)
	members = append(members, p.CreatedBy)
	for _, id := range ids {
		if !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	p.Members = members
}

// UserIDs lists every user the project references.
func (p *Project) UserIDs() []primitive.ObjectID {
	ids := []primitive.ObjectID{p.CreatedBy}
	for _, m := range p.Members {
		if !slices.Contains(ids, m) {
			ids = append(ids, m)
		}
	}
	return ids
}

// ProjectView is a project with its users expanded.
type ProjectView struct {
	ID          primitive.ObjectID `json:"_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	CreatedBy   UserSummary        `json:"createdBy"`
	Members     []UserSummary      `json:"members"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (p *Project) View(dir UserDirectory) ProjectView {
	members := make([]UserSummary, 0, len(p.Members))
	for _, id := range p.Members {
		members = append(members, dir.Lookup(id))
	}
	return ProjectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   dir.Lookup(p.CreatedBy),
		Members:     members,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
