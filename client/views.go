package client

import (
	"strings"
	"time"

	"project-planner/models"

	"golang.org/x/exp/slices"
)

const day = 24 * time.Hour

// BoardColumn is one kanban column.
type BoardColumn struct {
	Status models.TaskStatus
	Tasks  []models.TaskView
}

// Board groups tasks into one column per status, in board order.
func Board(tasks []models.TaskView) []BoardColumn {
	cols := make([]BoardColumn, 0, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		col := BoardColumn{Status: status, Tasks: []models.TaskView{}}
		for _, t := range tasks {
			if t.Status == status {
				col.Tasks = append(col.Tasks, t)
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// List orders tasks by start date, then end date, then title.
func List(tasks []models.TaskView) []models.TaskView {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b models.TaskView) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		if c := a.EndDate.Compare(b.EndDate); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return out
}

type CalendarDay struct {
	Date  time.Time
	Tasks []models.TaskView
}

// MaxCalendarDays bounds the window a single Calendar call expands.
const MaxCalendarDays = 366

// Calendar lists every UTC day in [from, to] covered by at least one task,
// with the tasks spanning it. Windows longer than MaxCalendarDays are cut to
// that length.
func Calendar(tasks []models.TaskView, from, to time.Time) []CalendarDay {
	from, to = truncateDay(from), truncateDay(to)
	if limit := from.Add((MaxCalendarDays - 1) * day); to.After(limit) {
		to = limit
	}
	byDay := make(map[time.Time][]models.TaskView)
	for _, t := range List(tasks) {
		start, end := truncateDay(t.StartDate), truncateDay(t.EndDate)
		if end.Before(start) {
			end = start
		}
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		for d := start; !d.After(end); d = d.Add(day) {
			byDay[d] = append(byDay[d], t)
		}
	}
	days := make([]CalendarDay, 0, len(byDay))
	for d, ts := range byDay {
		days = append(days, CalendarDay{Date: d, Tasks: ts})
	}
	slices.SortFunc(days, func(a, b CalendarDay) int { return a.Date.Compare(b.Date) })
	return days
}

type GanttRow struct {
	Task models.TaskView
	// Offset and Length are in days from the chart start. Length is at least 1.
	Offset int
	Length int
	// Col and Span are Offset and Length scaled to the chart width.
	Col  int
	Span int
}

type GanttChart struct {
	Start time.Time
	Days  int
	Width int
	Rows  []GanttRow
}

// Gantt places each task on a timeline starting at the earliest start date,
// scaled so the whole range fits in width columns.
func Gantt(tasks []models.TaskView, width int) GanttChart {
	if width < 1 {
		width = 1
	}
	chart := GanttChart{Width: width, Rows: []GanttRow{}}
	sorted := List(tasks)
	if len(sorted) == 0 {
		return chart
	}

	chart.Start = truncateDay(sorted[0].StartDate)
	last := chart.Start
	for _, t := range sorted {
		if end := truncateDay(t.EndDate); end.After(last) {
			last = end
		}
	}
	chart.Days = int(last.Sub(chart.Start)/day) + 1

	for _, t := range sorted {
		start, end := truncateDay(t.StartDate), truncateDay(t.EndDate)
		if end.Before(start) {
			end = start
		}
		row := GanttRow{
			Task:   t,
			Offset: int(start.Sub(chart.Start) / day),
			Length: int(end.Sub(start)/day) + 1,
		}
		row.Col = row.Offset * width / chart.Days
		row.Span = max(1, row.Length*width/chart.Days)
		if row.Col+row.Span > width {
			row.Span = width - row.Col
		}
		chart.Rows = append(chart.Rows, row)
	}
	return chart
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
