package main

import (
	"fmt"
	"time"

	"project-planner/client"
	"project-planner/models"
	"project-planner/utils"

	"github.com/spf13/cobra"
)

func viewCmd(a *app) *cobra.Command {
	var project string
	var width int

	load := func(cmd *cobra.Command) ([]models.TaskView, error) {
		id, err := parseID(project)
		if err != nil {
			return nil, err
		}
		return a.session.SelectProject(cmd.Context(), id)
	}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show a project's tasks as a board, list, calendar or gantt chart",
	}
	cmd.PersistentFlags().StringVar(&project, "project", "", "Project id")
	_ = cmd.MarkPersistentFlagRequired("project")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "board",
			Short: "Kanban board by status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				tasks, err := load(cmd)
				if err != nil {
					return err
				}
				renderBoard(cmd.OutOrStdout(), client.Board(tasks))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Tasks ordered by start date",
			RunE: func(cmd *cobra.Command, _ []string) error {
				tasks, err := load(cmd)
				if err != nil {
					return err
				}
				renderTaskList(cmd.OutOrStdout(), client.List(tasks))
				return nil
			},
		},
	)

	var from, to string
	calendar := &cobra.Command{
		Use:   "calendar",
		Short: "Tasks per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := load(cmd)
			if err != nil {
				return err
			}
			start, end, err := calendarWindow(tasks, from, to)
			if err != nil {
				return err
			}
			renderCalendar(cmd.OutOrStdout(), client.Calendar(tasks, start, end))
			return nil
		},
	}
	calendar.Flags().StringVar(&from, "from", "", "First day (default: first day of the month of the earliest task)")
	calendar.Flags().StringVar(&to, "to", "", "Last day (default: end of the month --from falls in)")
	cmd.AddCommand(calendar)

	gantt := &cobra.Command{
		Use:   "gantt",
		Short: "Timeline of tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := load(cmd)
			if err != nil {
				return err
			}
			if width < 10 {
				return fmt.Errorf("width must be at least 10")
			}
			renderGantt(cmd.OutOrStdout(), client.Gantt(tasks, width))
			return nil
		},
	}
	gantt.Flags().IntVar(&width, "width", 60, "Chart width in columns")
	cmd.AddCommand(gantt)
	return cmd
}

// calendarWindow defaults to one month, like the web calendar.
func calendarWindow(tasks []models.TaskView, from, to string) (time.Time, time.Time, error) {
	var start time.Time
	if from != "" {
		t, ok := utils.ParseDate(from)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q", from)
		}
		start = t
	} else {
		start = time.Now().UTC()
		if sorted := client.List(tasks); len(sorted) > 0 {
			start = sorted[0].StartDate.UTC()
		}
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to == "" {
		first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, first.AddDate(0, 1, -1), nil
	}
	end, ok := utils.ParseDate(to)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q", to)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be before --from")
	}
	return start, end, nil
}
