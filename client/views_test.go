package client

import (
	"testing"
	"time"

	"project-planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func task(title string, status models.TaskStatus, start, end string) models.TaskView {
	return models.TaskView{
		ID: primitive.NewObjectID(), Title: title, Status: status,
		StartDate: date(start), EndDate: date(end),
	}
}

func sampleTasks() []models.TaskView {
	return []models.TaskView{
		task("deploy", models.StatusTodo, "2024-01-09", "2024-01-10"),
		task("design", models.StatusDone, "2024-01-01", "2024-01-03"),
		task("build", models.StatusInProgress, "2024-01-03", "2024-01-08"),
		task("review", models.StatusTodo, "2024-01-03", "2024-01-04"),
	}
}

func titles(ts []models.TaskView) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}

func TestBoardColumns(t *testing.T) {
	cols := Board(sampleTasks())
	require.Len(t, cols, 3)
	assert.Equal(t, models.StatusTodo, cols[0].Status)
	assert.Equal(t, []string{"deploy", "review"}, titles(cols[0].Tasks))
	assert.Equal(t, []string{"build"}, titles(cols[1].Tasks))
	assert.Equal(t, []string{"design"}, titles(cols[2].Tasks))

	empty := Board(nil)
	require.Len(t, empty, 3)
	assert.NotNil(t, empty[0].Tasks)
}

func TestListSortsByStart(t *testing.T) {
	in := sampleTasks()
	assert.Equal(t, []string{"design", "review", "build", "deploy"}, titles(List(in)))
	assert.Equal(t, "deploy", in[0].Title)
}

func TestCalendarBucketsEveryDay(t *testing.T) {
	days := Calendar([]models.TaskView{
		task("a", models.StatusTodo, "2024-01-01", "2024-01-03"),
		task("b", models.StatusTodo, "2024-01-03", "2024-01-03"),
	}, date("2024-01-01"), date("2024-01-31"))
	require.Len(t, days, 3)
	assert.Equal(t, date("2024-01-01"), days[0].Date)
	assert.Equal(t, []string{"a"}, titles(days[0].Tasks))
	assert.Equal(t, []string{"a", "b"}, titles(days[2].Tasks))
}

func TestCalendarClipsToWindow(t *testing.T) {
	tasks := []models.TaskView{
		task("forever", models.StatusTodo, "0001-01-01", "9999-12-31"),
		task("outside", models.StatusTodo, "2023-12-01", "2023-12-02"),
	}
	days := Calendar(tasks, date("2024-02-27"), date("2024-03-02"))
	require.Len(t, days, 5)
	assert.Equal(t, date("2024-02-27"), days[0].Date)
	assert.Equal(t, date("2024-03-02"), days[4].Date)
	assert.Equal(t, []string{"forever"}, titles(days[2].Tasks))

	days = Calendar(tasks, date("2000-01-01"), date("9999-12-31"))
	require.Len(t, days, MaxCalendarDays)
	assert.Equal(t, date("2000-12-31"), days[MaxCalendarDays-1].Date)

	assert.Empty(t, Calendar(tasks, date("2024-03-02"), date("2024-03-01")))
}

func TestGanttScaling(t *testing.T) {
	chart := Gantt(sampleTasks(), 20)
	assert.Equal(t, date("2024-01-01"), chart.Start)
	assert.Equal(t, 10, chart.Days)
	require.Len(t, chart.Rows, 4)

	design := chart.Rows[0]
	assert.Equal(t, "design", design.Task.Title)
	assert.Equal(t, 0, design.Offset)
	assert.Equal(t, 3, design.Length)
	assert.Equal(t, 0, design.Col)
	assert.Equal(t, 6, design.Span)

	deploy := chart.Rows[3]
	assert.Equal(t, 8, deploy.Offset)
	assert.Equal(t, 16, deploy.Col)
	assert.Equal(t, 4, deploy.Span)

	for _, row := range chart.Rows {
		assert.LessOrEqual(t, row.Col+row.Span, chart.Width)
		assert.GreaterOrEqual(t, row.Span, 1)
	}

	assert.Empty(t, Gantt(nil, 20).Rows)
}

func TestStoreInvalidation(t *testing.T) {
	s := NewStore()
	p := models.ProjectView{ID: primitive.NewObjectID(), Name: "P"}
	s.SetProjects([]models.ProjectView{p})
	s.SetActiveProject(p.ID)
	tv := task("a", models.StatusTodo, "2024-01-01", "2024-01-02")
	s.SetTasks(p.ID, []models.TaskView{tv})

	_, fresh := s.Tasks(p.ID)
	assert.True(t, fresh)
	s.InvalidateTasks(p.ID)
	cached, fresh := s.Tasks(p.ID)
	assert.False(t, fresh)
	assert.Len(t, cached, 1, "stale data stays readable until refetch")

	got, ok := s.Task(p.ID, tv.ID)
	require.True(t, ok)
	assert.Equal(t, "a", got.Title)

	// project disappears from the server list
	s.SetProjects(nil)
	assert.True(t, s.ActiveProject().IsZero())
	_, ok = s.Task(p.ID, tv.ID)
	assert.False(t, ok)
}
