package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"project-planner/client"
	"project-planner/models"
)

const dateLayout = "2006-01-02"

func renderProjects(w io.Writer, projects []models.ProjectView) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tMEMBERS")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID.Hex(), p.Name, userLabel(p.CreatedBy), len(p.Members))
	}
}

func renderProject(w io.Writer, p models.ProjectView) {
	fmt.Fprintf(w, "%s  %s\n", p.ID.Hex(), p.Name)
	fmt.Fprintf(w, "  %s\n", p.Description)
	fmt.Fprintf(w, "  owner: %s\n", userLabel(p.CreatedBy))
	labels := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		labels = append(labels, userLabel(m))
	}
	fmt.Fprintf(w, "  members: %s\n", strings.Join(labels, ", "))
}

func renderTaskList(w io.Writer, tasks []models.TaskView) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tSTART\tEND\tASSIGNEE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID.Hex(), t.Title, t.Status,
			t.StartDate.Format(dateLayout), t.EndDate.Format(dateLayout), userLabel(t.AssignedTo))
	}
}

func renderBoard(w io.Writer, cols []client.BoardColumn) {
	for i, col := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s (%d)\n", col.Status, len(col.Tasks))
		for _, t := range col.Tasks {
			fmt.Fprintf(w, "  %s  %s  [%s]\n", t.ID.Hex(), t.Title, userLabel(t.AssignedTo))
		}
	}
}

func renderCalendar(w io.Writer, days []client.CalendarDay) {
	for _, d := range days {
		titles := make([]string, 0, len(d.Tasks))
		for _, t := range d.Tasks {
			titles = append(titles, t.Title)
		}
		fmt.Fprintf(w, "%s %s  %s\n", d.Date.Format(dateLayout), d.Date.Weekday().String()[:3], strings.Join(titles, ", "))
	}
}

func renderGantt(w io.Writer, chart client.GanttChart) {
	if len(chart.Rows) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	last := chart.Start.AddDate(0, 0, chart.Days-1)
	fmt.Fprintf(w, "%s .. %s (%d days)\n", chart.Start.Format(dateLayout), last.Format(dateLayout), chart.Days)

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	defer tw.Flush()
	for _, row := range chart.Rows {
		bar := strings.Repeat(" ", row.Col) + strings.Repeat("#", row.Span) + strings.Repeat(" ", chart.Width-row.Col-row.Span)
		fmt.Fprintf(tw, "%s\t|%s|\t%s\n", row.Task.Title, bar, row.Task.Status)
	}
}

func userLabel(u models.UserSummary) string {
	if u.FullName == "" {
		return u.ID.Hex()
	}
	return u.FullName
}
