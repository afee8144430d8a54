package main

import (
	"fmt"

	"project-planner/models"
	"project-planner/services"

	"github.com/spf13/cobra"
)

type taskFlags struct {
	title, description, status, start, end, assignee string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Title")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.status, "status", "", "todo, inProgress or done")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "Assigned user id")
}

// fields returns only the flags the user actually set.
func (f *taskFlags) fields(cmd *cobra.Command) services.TaskFields {
	var out services.TaskFields
	set := func(name string, value *string, dst **string) {
		if cmd.Flags().Changed(name) {
			v := *value
			*dst = &v
		}
	}
	set("title", &f.title, &out.Title)
	set("description", &f.description, &out.Description)
	set("status", &f.status, &out.Status)
	set("start", &f.start, &out.StartDate)
	set("end", &f.end, &out.EndDate)
	set("assignee", &f.assignee, &out.AssignedTo)
	return out
}

func tasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and manage tasks",
	}
	cmd.AddCommand(
		taskListCmd(a),
		taskCreateCmd(a),
		taskUpdateCmd(a),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return a.session.DeleteTask(cmd.Context(), id)
			},
		},
		taskBulkUpdateCmd(a),
		taskBulkDeleteCmd(a),
	)
	return cmd
}

func taskListCmd(a *app) *cobra.Command {
	var q services.TaskQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks across your projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := a.api.ListTasks(cmd.Context(), q)
			if err != nil {
				return err
			}
			renderTaskList(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.ProjectID, "project", "", "Only tasks of this project")
	cmd.Flags().StringVar(&q.Status, "status", "", "Only tasks with this status")
	cmd.Flags().StringVar(&q.StartDate, "from", "", "Tasks starting on or after this date")
	cmd.Flags().StringVar(&q.EndDate, "to", "", "Tasks ending on or before this date")
	return cmd
}

func taskCreateCmd(a *app) *cobra.Command {
	var f taskFlags
	var project string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			assignee := f.assignee
			if assignee == "" {
				var err error
				if assignee, err = currentUserID(a); err != nil {
					return err
				}
			}
			t, err := a.session.CreateTask(cmd.Context(), services.CreateTaskInput{
				Title:       f.title,
				Description: f.description,
				Status:      f.status,
				StartDate:   f.start,
				EndDate:     f.end,
				AssignedTo:  assignee,
				ProjectID:   project,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID.Hex())
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&project, "project", "", "Project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskUpdateCmd(a *app) *cobra.Command {
	var f taskFlags
	var project string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := services.UpdateTaskInput{TaskFields: f.fields(cmd)}
			if cmd.Flags().Changed("project") {
				in.ProjectID = &project
			}
			t, err := a.session.UpdateTask(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			renderTaskList(cmd.OutOrStdout(), []models.TaskView{*t})
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&project, "project", "", "Move the task to this project")
	return cmd
}

func taskBulkUpdateCmd(a *app) *cobra.Command {
	var f taskFlags
	var ids []string
	cmd := &cobra.Command{
		Use:   "bulk-update",
		Short: "Apply the same change to several tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseIDs(ids)
			if err != nil {
				return err
			}
			n, err := a.session.BulkUpdateTasks(cmd.Context(), parsed, f.fields(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "modified: %d\n", n)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Task ids")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func taskBulkDeleteCmd(a *app) *cobra.Command {
	var ids []string
	cmd := &cobra.Command{
		Use:   "bulk-delete",
		Short: "Delete several tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseIDs(ids)
			if err != nil {
				return err
			}
			n, err := a.session.BulkDeleteTasks(cmd.Context(), parsed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted: %d\n", n)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Task ids")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}
