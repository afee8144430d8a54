package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"project-planner/logging"
	"project-planner/models"
	"project-planner/repositories"
	"project-planner/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store    *repositories.Store
	jwt      *JWTService
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	jwtSvc := NewJWTService("test-secret", time.Hour)
	return &fixture{
		store:    store,
		jwt:      jwtSvc,
		users:    NewUserService(store, jwtSvc, bcrypt.MinCost),
		projects: NewProjectService(store),
		tasks:    NewTaskService(store),
	}
}

func (f *fixture) register(t *testing.T, email string) *models.User {
	t.Helper()
	user, _, err := f.users.RegisterUser(context.Background(), RegisterInput{
		Email: email, Password: "secret1", FullName: "User " + email,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) project(t *testing.T, owner *models.User, members ...*models.User) *models.Project {
	t.Helper()
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID.Hex())
	}
	view, err := f.projects.CreateProject(context.Background(), owner.ID, CreateProjectInput{
		Name: "Launch", Description: "Q3 launch", Members: ids,
	})
	require.NoError(t, err)
	p, err := f.projects.GetProject(context.Background(), view.ID)
	require.NoError(t, err)
	return p
}

func (f *fixture) task(t *testing.T, user *models.User, p *models.Project, start, end string) models.TaskView {
	t.Helper()
	view, err := f.tasks.CreateTask(context.Background(), user.ID, CreateTaskInput{
		Title: "Write docs", Description: "API docs", StartDate: start, EndDate: end,
		AssignedTo: user.ID.Hex(), ProjectID: p.ID.Hex(),
	})
	require.NoError(t, err)
	return view
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Status
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	id := primitive.NewObjectID()

	token, err := svc.GenerateAuthToken(id)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = NewJWTService("other", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTExpired(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.GenerateAuthToken(primitive.NewObjectID())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]RegisterInput{
		"missing":        {Email: "a@x.io"},
		"bad email":      {Email: "not-an-email", Password: "secret1", FullName: "Ann"},
		"short password": {Email: "a@x.io", Password: "12345", FullName: "Ann"},
		"short name":     {Email: "a@x.io", Password: "secret1", FullName: " A "},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.users.RegisterUser(ctx, in)
			assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, token, err := f.users.RegisterUser(ctx, RegisterInput{Email: " Ann@X.io ", Password: "secret1", FullName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", user.Email)
	assert.NotEqual(t, "secret1", user.Password)
	id, err := f.jwt.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, _, err = f.users.RegisterUser(ctx, RegisterInput{Email: "ann@x.io", Password: "secret1", FullName: "Ann"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.EqualError(t, err, "Email already registered")

	logged, _, err := f.users.LoginUser(ctx, LoginInput{Email: "ANN@x.io", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = f.users.LoginUser(ctx, LoginInput{Email: "ann@x.io", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.EqualError(t, err, "Invalid credentials")

	_, _, err = f.users.LoginUser(ctx, LoginInput{Email: "nobody@x.io", Password: "secret1"})
	assert.EqualError(t, err, "Invalid credentials")

	_, _, err = f.users.LoginUser(ctx, LoginInput{Email: "ann@x.io"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

}

func TestRegisterDoesNotLogEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ann@x.io")

	var buf bytes.Buffer
	prev := logging.Logger.Out
	logging.Logger.SetOutput(&buf)
	t.Cleanup(func() { logging.Logger.SetOutput(prev) })

	_, _, err := f.users.RegisterUser(ctx, RegisterInput{Email: "ann@x.io", Password: "secret1", FullName: "Ann"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "REGISTER_DUPLICATE_EMAIL")
	assert.NotContains(t, buf.String(), "ann@x.io")
}

func TestUnknownEmailLoginRunsBcrypt(t *testing.T) {
	f := newFixture(t)
	// cost 8 is about 20ms per compare; a lookup miss alone takes microseconds
	users := NewUserService(f.store, f.jwt, bcrypt.MinCost+4)
	cost, err := bcrypt.Cost([]byte(users.dummyHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+4, cost)

	start := time.Now()
	_, _, err = users.LoginUser(context.Background(), LoginInput{Email: "nobody@x.io", Password: "secret1"})
	assert.EqualError(t, err, "Invalid credentials")
	assert.Greater(t, time.Since(start), time.Millisecond)
}

func TestAccessPredicate(t *testing.T) {
	owner, member, other := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	p := &models.Project{CreatedBy: owner}
	p.SetMembers([]primitive.ObjectID{member})

	assert.True(t, HasAccess(p, owner))
	assert.True(t, HasAccess(p, member))
	assert.False(t, HasAccess(p, other))

	assert.True(t, Allowed(p, owner, AccessOwner))
	assert.False(t, Allowed(p, member, AccessOwner))
	assert.True(t, Allowed(p, member, AccessMember))

	// creator keeps access even if dropped from members
	p.Members = nil
	assert.True(t, HasAccess(p, owner))
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.register(t, "a@x.io"), f.register(t, "b@x.io")

	view, err := f.projects.CreateProject(ctx, a.ID, CreateProjectInput{
		Name: " Launch ", Description: "Q3", Members: []string{b.ID.Hex(), b.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Launch", view.Name)
	assert.Equal(t, a.ID, view.CreatedBy.ID)
	require.Len(t, view.Members, 2)
	assert.Equal(t, a.ID, view.Members[0].ID)
	assert.Equal(t, "b@x.io", view.Members[1].Email)

	_, err = f.projects.CreateProject(ctx, a.ID, CreateProjectInput{Name: "x"})
	assert.EqualError(t, err, "Name and description are required")

	_, err = f.projects.CreateProject(ctx, a.ID, CreateProjectInput{Name: "x", Description: "y", Members: []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = f.projects.CreateProject(ctx, a.ID, CreateProjectInput{Name: "x", Description: "y", Members: []string{primitive.NewObjectID().Hex()}})
	assert.EqualError(t, err, "Invalid member IDs")
}

func TestListProjectsOnlyAccessible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.register(t, "a@x.io"), f.register(t, "b@x.io"), f.register(t, "c@x.io")
	shared := f.project(t, a, b)
	f.project(t, c)

	list, err := f.projects.ListProjects(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shared.ID, list[0].ID)

	list, err = f.projects.ListProjects(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUpdateProjectKeepsCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.register(t, "a@x.io"), f.register(t, "b@x.io"), f.register(t, "c@x.io")
	p := f.project(t, a, b)

	members := []string{c.ID.Hex()}
	name := "Renamed"
	view, err := f.projects.UpdateProject(ctx, p, UpdateProjectInput{Name: &name, Members: &members})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Name)
	assert.Equal(t, "Q3 launch", view.Description)
	require.Len(t, view.Members, 2)
	assert.Equal(t, a.ID, view.Members[0].ID)
	assert.Equal(t, c.ID, view.Members[1].ID)
	assert.False(t, view.UpdatedAt.Before(view.CreatedAt))

	empty := "  "
	_, err = f.projects.UpdateProject(ctx, p, UpdateProjectInput{Description: &empty})
	assert.EqualError(t, err, "Project description cannot be empty")
}

func TestDeleteProjectCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.io")
	p := f.project(t, a)
	keep := f.project(t, a)
	f.task(t, a, p, "2024-01-01", "2024-01-02")
	f.task(t, a, p, "2024-01-03", "2024-01-04")
	kept := f.task(t, a, keep, "2024-01-01", "2024-01-02")

	deleted, err := f.projects.DeleteProject(ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	_, err = f.projects.GetProject(ctx, p.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	left, err := f.store.Tasks.Find(ctx, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, kept.ID, left[0].ID)
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, c := f.register(t, "a@x.io"), f.register(t, "c@x.io")
	p := f.project(t, a)

	view := f.task(t, a, p, "2024-01-01", "2024-01-05")
	assert.Equal(t, models.StatusTodo, view.Status)
	assert.Equal(t, "a@x.io", view.AssignedTo.Email)
	assert.Equal(t, p.ID, view.ProjectID)

	base := CreateTaskInput{
		Title: "T", Description: "D", StartDate: "2024-01-01", EndDate: "2024-01-02",
		AssignedTo: a.ID.Hex(), ProjectID: p.ID.Hex(),
	}

	_, err := f.tasks.CreateTask(ctx, c.ID, base)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	bad := base
	bad.ProjectID = "xyz"
	_, err = f.tasks.CreateTask(ctx, a.ID, bad)
	assert.EqualError(t, err, "Invalid project ID")

	bad = base
	bad.ProjectID = primitive.NewObjectID().Hex()
	_, err = f.tasks.CreateTask(ctx, a.ID, bad)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	bad = base
	bad.Title = ""
	_, err = f.tasks.CreateTask(ctx, a.ID, bad)
	assert.EqualError(t, err, "Missing required fields")

	bad = base
	bad.Status = "blocked"
	_, err = f.tasks.CreateTask(ctx, a.ID, bad)
	assert.EqualError(t, err, "Invalid status")

	bad = base
	bad.StartDate, bad.EndDate = "2024-02-01", "2024-01-01"
	_, err = f.tasks.CreateTask(ctx, a.ID, bad)
	assert.EqualError(t, err, errDateOrder)

	bad = base
	bad.AssignedTo = primitive.NewObjectID().Hex()
	_, err = f.tasks.CreateTask(ctx, a.ID, bad)
	assert.EqualError(t, err, "Assigned user not found")

	same := base
	same.EndDate = same.StartDate
	_, err = f.tasks.CreateTask(ctx, a.ID, same)
	assert.NoError(t, err)
}

func TestListTasksFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, c := f.register(t, "a@x.io"), f.register(t, "c@x.io")
	p := f.project(t, a)
	other := f.project(t, c)
	early := f.task(t, a, p, "2024-01-01", "2024-01-03")
	late := f.task(t, a, p, "2024-02-01", "2024-02-10")
	f.task(t, c, other, "2024-01-01", "2024-01-03")

	all, err := f.tasks.ListTasks(ctx, a.ID, TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	from, err := f.tasks.ListTasks(ctx, a.ID, TaskQuery{StartDate: "2024-01-15"})
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, late.ID, from[0].ID)

	until, err := f.tasks.ListTasks(ctx, a.ID, TaskQuery{EndDate: "2024-01-31"})
	require.NoError(t, err)
	require.Len(t, until, 1)
	assert.Equal(t, early.ID, until[0].ID)

	done, err := f.tasks.ListTasks(ctx, a.ID, TaskQuery{Status: "done"})
	require.NoError(t, err)
	assert.Empty(t, done)

	_, err = f.tasks.ListTasks(ctx, a.ID, TaskQuery{ProjectID: other.ID.Hex()})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = f.tasks.ListTasks(ctx, a.ID, TaskQuery{Status: "later"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	none, err := f.tasks.ListTasks(ctx, primitive.NewObjectID(), TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, c := f.register(t, "a@x.io"), f.register(t, "c@x.io")
	p := f.project(t, a)
	foreign := f.project(t, c)
	second := f.project(t, a)
	view := f.task(t, a, p, "2024-01-01", "2024-01-05")
	task, err := f.tasks.GetTask(ctx, view.ID)
	require.NoError(t, err)

	status := "inProgress"
	updated, err := f.tasks.UpdateTask(ctx, a.ID, task, UpdateTaskInput{TaskFields: TaskFields{Status: &status}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)

	end := "2023-12-01"
	_, err = f.tasks.UpdateTask(ctx, a.ID, task, UpdateTaskInput{TaskFields: TaskFields{EndDate: &end}})
	assert.EqualError(t, err, errDateOrder)

	target := foreign.ID.Hex()
	_, err = f.tasks.UpdateTask(ctx, a.ID, task, UpdateTaskInput{ProjectID: &target})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	target = second.ID.Hex()
	moved, err := f.tasks.UpdateTask(ctx, a.ID, task, UpdateTaskInput{ProjectID: &target})
	require.NoError(t, err)
	assert.Equal(t, second.ID, moved.ProjectID)

	_, err = f.tasks.UpdateTask(ctx, a.ID, task, UpdateTaskInput{})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.io")
	p := f.project(t, a)
	view := f.task(t, a, p, "2024-01-01", "2024-01-05")
	task, err := f.tasks.GetTask(ctx, view.ID)
	require.NoError(t, err)

	require.NoError(t, f.tasks.DeleteTask(ctx, task))
	_, err = f.tasks.GetTask(ctx, view.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	assert.Equal(t, http.StatusNotFound, statusOf(t, f.tasks.DeleteTask(ctx, task)))
}

func TestBulkUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, c := f.register(t, "a@x.io"), f.register(t, "c@x.io")
	p := f.project(t, a)
	foreign := f.project(t, c)
	t1 := f.task(t, a, p, "2024-01-01", "2024-01-05")
	t2 := f.task(t, a, p, "2024-01-02", "2024-01-03")
	t3 := f.task(t, c, foreign, "2024-01-01", "2024-01-05")

	done := "done"
	n, err := f.tasks.BulkUpdate(ctx, a.ID, BulkUpdateInput{
		IDs:    []string{t1.ID.Hex(), t2.ID.Hex(), primitive.NewObjectID().Hex()},
		Update: TaskFields{Status: &done},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := f.tasks.GetTask(ctx, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)

	todo := "todo"
	_, err = f.tasks.BulkUpdate(ctx, a.ID, BulkUpdateInput{
		IDs: []string{t1.ID.Hex(), t3.ID.Hex()}, Update: TaskFields{Status: &todo},
	})
	assert.EqualError(t, err, "Not authorized to update some of these tasks")
	got, err = f.tasks.GetTask(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status, "rejected batch must not write")

	// t2 ends on 01-03, so a 01-04 start is invalid for it only
	start := "2024-01-04"
	_, err = f.tasks.BulkUpdate(ctx, a.ID, BulkUpdateInput{
		IDs: []string{t1.ID.Hex(), t2.ID.Hex()}, Update: TaskFields{StartDate: &start},
	})
	assert.EqualError(t, err, errDateOrder)

	_, err = f.tasks.BulkUpdate(ctx, a.ID, BulkUpdateInput{IDs: []string{"bad"}, Update: TaskFields{Status: &done}})
	assert.EqualError(t, err, "Invalid task IDs")

	_, err = f.tasks.BulkUpdate(ctx, a.ID, BulkUpdateInput{IDs: []string{t1.ID.Hex()}})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	n, err = f.tasks.BulkUpdate(ctx, a.ID, BulkUpdateInput{
		IDs: []string{primitive.NewObjectID().Hex()}, Update: TaskFields{Status: &done},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.register(t, "a@x.io"), f.register(t, "b@x.io"), f.register(t, "c@x.io")
	p := f.project(t, a, b)
	foreign := f.project(t, c)
	t1 := f.task(t, a, p, "2024-01-01", "2024-01-05")
	t2 := f.task(t, b, p, "2024-01-01", "2024-01-05")
	t3 := f.task(t, c, foreign, "2024-01-01", "2024-01-05")

	_, err := f.tasks.BulkDelete(ctx, b.ID, BulkDeleteInput{IDs: []string{t1.ID.Hex(), t3.ID.Hex()}})
	assert.EqualError(t, err, "Not authorized to delete some of these tasks")

	n, err := f.tasks.BulkDelete(ctx, b.ID, BulkDeleteInput{IDs: []string{t1.ID.Hex(), t2.ID.Hex()}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = f.tasks.BulkDelete(ctx, b.ID, BulkDeleteInput{})
	assert.EqualError(t, err, "Invalid task IDs")
}

func TestBulkRejectsOrphanedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.io")
	orphan := &models.Task{
		ID: primitive.NewObjectID(), Title: "ghost", Status: models.StatusTodo,
		ProjectID: primitive.NewObjectID(), CreatedBy: a.ID, AssignedTo: a.ID,
	}
	require.NoError(t, f.store.Tasks.Create(ctx, orphan))

	_, err := f.tasks.BulkDelete(ctx, a.ID, BulkDeleteInput{IDs: []string{orphan.ID.Hex()}})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}
