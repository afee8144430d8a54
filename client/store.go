package client

import (
	"sync"

	"project-planner/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type taskBucket struct {
	order []primitive.ObjectID
	byID  map[primitive.ObjectID]models.TaskView
	stale bool
}

// Store is the client-side state: projects by id, tasks by project id and
// then task id, and the active project. Entries are replaced wholesale by the
// last fetch; invalidation only marks them stale.
type Store struct {
	mu sync.RWMutex

	projectOrder  []primitive.ObjectID
	projects      map[primitive.ObjectID]models.ProjectView
	projectsValid bool

	tasks  map[primitive.ObjectID]*taskBucket
	active primitive.ObjectID
}

func NewStore() *Store {
	return &Store{
		projects: make(map[primitive.ObjectID]models.ProjectView),
		tasks:    make(map[primitive.ObjectID]*taskBucket),
	}
}

func (s *Store) SetProjects(list []models.ProjectView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectOrder = make([]primitive.ObjectID, 0, len(list))
	s.projects = make(map[primitive.ObjectID]models.ProjectView, len(list))
	for _, p := range list {
		s.projectOrder = append(s.projectOrder, p.ID)
		s.projects[p.ID] = p
	}
	s.projectsValid = true
	// drop tasks of projects the user can no longer see
	for id := range s.tasks {
		if _, ok := s.projects[id]; !ok {
			delete(s.tasks, id)
		}
	}
	if _, ok := s.projects[s.active]; !ok {
		s.active = primitive.NilObjectID
	}
}

// Projects returns the cached list and whether it is fresh.
func (s *Store) Projects() ([]models.ProjectView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ProjectView, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, s.projects[id])
	}
	return out, s.projectsValid
}

func (s *Store) Project(id primitive.ObjectID) (models.ProjectView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	return p, ok
}

func (s *Store) InvalidateProjects() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectsValid = false
}

func (s *Store) SetTasks(projectID primitive.ObjectID, list []models.TaskView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &taskBucket{
		order: make([]primitive.ObjectID, 0, len(list)),
		byID:  make(map[primitive.ObjectID]models.TaskView, len(list)),
	}
	for _, t := range list {
		b.order = append(b.order, t.ID)
		b.byID[t.ID] = t
	}
	s.tasks[projectID] = b
}

// Tasks returns the cached tasks of a project and whether they are fresh.
func (s *Store) Tasks(projectID primitive.ObjectID) ([]models.TaskView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.tasks[projectID]
	if !ok {
		return []models.TaskView{}, false
	}
	out := make([]models.TaskView, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.byID[id])
	}
	return out, !b.stale
}

func (s *Store) Task(projectID, taskID primitive.ObjectID) (models.TaskView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.tasks[projectID]; ok {
		t, ok := b.byID[taskID]
		return t, ok
	}
	return models.TaskView{}, false
}

// TaskProjects returns the cached projects holding any of the given tasks.
func (s *Store) TaskProjects(taskIDs ...primitive.ObjectID) []primitive.ObjectID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []primitive.ObjectID{}
	for projectID, b := range s.tasks {
		for _, id := range taskIDs {
			if _, ok := b.byID[id]; ok {
				out = append(out, projectID)
				break
			}
		}
	}
	return out
}

func (s *Store) InvalidateTasks(projectID primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.tasks[projectID]; ok {
		b.stale = true
	}
}

func (s *Store) SetActiveProject(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
}

func (s *Store) ActiveProject() primitive.ObjectID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Reset forgets everything, used on logout and on 401.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectOrder = nil
	s.projects = make(map[primitive.ObjectID]models.ProjectView)
	s.projectsValid = false
	s.tasks = make(map[primitive.ObjectID]*taskBucket)
	s.active = primitive.NilObjectID
}
