package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inProgress"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists the statuses in board order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Task struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Status      TaskStatus         `json:"status" bson:"status"`
	StartDate   time.Time          `json:"startDate" bson:"startDate"`
	EndDate     time.Time          `json:"endDate" bson:"endDate"`
	AssignedTo  primitive.ObjectID `json:"assignedTo" bson:"assignedTo"`
	CreatedBy   primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	ProjectID   primitive.ObjectID `json:"projectId" bson:"projectId"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TaskPatch carries the fields a bulk update may overwrite. Nil means unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	StartDate   *time.Time
	EndDate     *time.Time
	AssignedTo  *primitive.ObjectID
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.StartDate == nil && p.EndDate == nil && p.AssignedTo == nil
}

// Apply copies every set field onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
}

// TaskFilter narrows task queries. Zero values are ignored, except ProjectIDs:
// a non-nil empty slice matches nothing.
type TaskFilter struct {
	ProjectIDs []primitive.ObjectID
	Status     TaskStatus
	StartFrom  *time.Time
	EndBefore  *time.Time
}

// TaskView is a task with assignee and creator expanded.
type TaskView struct {
	ID          primitive.ObjectID `json:"_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      TaskStatus         `json:"status"`
	StartDate   time.Time          `json:"startDate"`
	EndDate     time.Time          `json:"endDate"`
	AssignedTo  UserSummary        `json:"assignedTo"`
	CreatedBy   UserSummary        `json:"createdBy"`
	ProjectID   primitive.ObjectID `json:"projectId"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (t *Task) View(dir UserDirectory) TaskView {
	return TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		AssignedTo:  dir.Lookup(t.AssignedTo),
		CreatedBy:   dir.Lookup(t.CreatedBy),
		ProjectID:   t.ProjectID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
