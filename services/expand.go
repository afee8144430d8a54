package services

import (
	"context"

	"project-planner/models"
	"project-planner/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slices"
)

// directory loads every referenced user in one round trip.
func directory(ctx context.Context, users repositories.UserRepository, ids []primitive.ObjectID) (models.UserDirectory, error) {
	if len(ids) == 0 {
		return models.UserDirectory{}, nil
	}
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return models.NewUserDirectory(found), nil
}

func expandProjects(ctx context.Context, users repositories.UserRepository, projects []models.Project) ([]models.ProjectView, error) {
	var ids []primitive.ObjectID
	for i := range projects {
		ids = appendUnique(ids, projects[i].UserIDs()...)
	}
	dir, err := directory(ctx, users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.ProjectView, 0, len(projects))
	for i := range projects {
		views = append(views, projects[i].View(dir))
	}
	return views, nil
}

func expandTasks(ctx context.Context, users repositories.UserRepository, tasks []models.Task) ([]models.TaskView, error) {
	var ids []primitive.ObjectID
	for i := range tasks {
		ids = appendUnique(ids, tasks[i].AssignedTo, tasks[i].CreatedBy)
	}
	dir, err := directory(ctx, users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, tasks[i].View(dir))
	}
	return views, nil
}

func appendUnique(ids []primitive.ObjectID, add ...primitive.ObjectID) []primitive.ObjectID {
	for _, id := range add {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
