package repositories

import (
	"context"
	"sort"
	"sync"

	"project-planner/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slices"
)

// MemoryDB keeps all three collections behind one lock so multi-document
// operations are atomic. Used with STORAGE=memory and in tests.
type MemoryDB struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]models.User
	emails   map[string]primitive.ObjectID
	projects map[primitive.ObjectID]models.Project
	tasks    map[primitive.ObjectID]models.Task
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:    make(map[primitive.ObjectID]models.User),
		emails:   make(map[string]primitive.ObjectID),
		projects: make(map[primitive.ObjectID]models.Project),
		tasks:    make(map[primitive.ObjectID]models.Task),
	}
}

// NewMemoryStore returns a Store backed by a fresh MemoryDB.
func NewMemoryStore() *Store {
	db := NewMemoryDB()
	return &Store{
		Users:    &memoryUsers{db},
		Projects: &memoryProjects{db},
		Tasks:    &memoryTasks{db},
	}
}

type memoryUsers struct{ db *MemoryDB }

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, taken := r.db.emails[user.Email]; taken {
		return ErrDuplicate
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.db.users[user.ID] = *user
	r.db.emails[user.Email] = user.ID
	return nil
}

func (r *memoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	id, ok := r.db.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := r.db.users[id]
	return &u, nil
}

func (r *memoryUsers) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	users := []models.User{}
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok && !slices.ContainsFunc(users, func(x models.User) bool { return x.ID == id }) {
			users = append(users, u)
		}
	}
	return users, nil
}

type memoryProjects struct{ db *MemoryDB }

func cloneProject(p models.Project) models.Project {
	p.Members = slices.Clone(p.Members)
	return p
}

func (r *memoryProjects) Create(_ context.Context, project *models.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	r.db.projects[project.ID] = cloneProject(*project)
	return nil
}

func (r *memoryProjects) FindByID(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = cloneProject(p)
	return &p, nil
}

func (r *memoryProjects) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	return r.filter(func(p models.Project) bool { return slices.Contains(ids, p.ID) }), nil
}

func (r *memoryProjects) FindForUser(_ context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	return r.filter(func(p models.Project) bool {
		return p.CreatedBy == userID || slices.Contains(p.Members, userID)
	}), nil
}

func (r *memoryProjects) filter(match func(models.Project) bool) []models.Project {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []models.Project{}
	for _, p := range r.db.projects {
		if match(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out
}

func (r *memoryProjects) Update(_ context.Context, project *models.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.projects[project.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = project.Name
	existing.Description = project.Description
	existing.Members = slices.Clone(project.Members)
	existing.UpdatedAt = project.UpdatedAt
	r.db.projects[project.ID] = existing
	return nil
}

func (r *memoryProjects) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.projects[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.projects, id)
	return nil
}

type memoryTasks struct{ db *MemoryDB }

func (r *memoryTasks) Create(_ context.Context, task *models.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	r.db.tasks[task.ID] = *task
	return nil
}

func (r *memoryTasks) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *memoryTasks) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Task, error) {
	return r.filter(func(t models.Task) bool { return slices.Contains(ids, t.ID) }), nil
}

func (r *memoryTasks) Find(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	return r.filter(func(t models.Task) bool {
		if f.ProjectIDs != nil && !slices.Contains(f.ProjectIDs, t.ProjectID) {
			return false
		}
		if f.Status != "" && t.Status != f.Status {
			return false
		}
		if f.StartFrom != nil && t.StartDate.Before(*f.StartFrom) {
			return false
		}
		if f.EndBefore != nil && t.EndDate.After(*f.EndBefore) {
			return false
		}
		return true
	}), nil
}

func (r *memoryTasks) filter(match func(models.Task) bool) []models.Task {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []models.Task{}
	for _, t := range r.db.tasks {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out
}

func (r *memoryTasks) Update(_ context.Context, task *models.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}
	task.CreatedAt = existing.CreatedAt
	task.CreatedBy = existing.CreatedBy
	r.db.tasks[task.ID] = *task
	return nil
}

func (r *memoryTasks) UpdateMany(_ context.Context, ids []primitive.ObjectID, patch models.TaskPatch) (int64, error) {
	if patch.Empty() {
		return 0, nil
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	ts := now()
	for _, id := range ids {
		t, ok := r.db.tasks[id]
		if !ok {
			continue
		}
		patch.Apply(&t)
		t.UpdatedAt = ts
		r.db.tasks[id] = t
		n++
	}
	return n, nil
}

func (r *memoryTasks) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.tasks, id)
	return nil
}

func (r *memoryTasks) DeleteMany(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.db.tasks[id]; ok {
			delete(r.db.tasks, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryTasks) DeleteByProject(_ context.Context, projectID primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, t := range r.db.tasks {
		if t.ProjectID == projectID {
			delete(r.db.tasks, id)
			n++
		}
	}
	return n, nil
}
