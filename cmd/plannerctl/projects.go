package main

import (
	"fmt"

	"project-planner/services"

	"github.com/spf13/cobra"
)

func projectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and manage projects",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List projects you created or belong to",
			RunE: func(cmd *cobra.Command, _ []string) error {
				projects, err := a.session.Projects(cmd.Context())
				if err != nil {
					return err
				}
				renderProjects(cmd.OutOrStdout(), projects)
				return nil
			},
		},
		projectCreateCmd(a),
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a project and its tasks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				p, err := a.api.GetProject(cmd.Context(), id)
				if err != nil {
					return err
				}
				tasks, err := a.api.ProjectTasks(cmd.Context(), id)
				if err != nil {
					return err
				}
				renderProject(cmd.OutOrStdout(), *p)
				fmt.Fprintln(cmd.OutOrStdout())
				renderTaskList(cmd.OutOrStdout(), tasks)
				return nil
			},
		},
		projectUpdateCmd(a),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a project and all of its tasks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return a.session.DeleteProject(cmd.Context(), id)
			},
		},
	)
	return cmd
}

func projectCreateCmd(a *app) *cobra.Command {
	var in services.CreateProjectInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.session.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Project name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Project description")
	cmd.Flags().StringSliceVar(&in.Members, "member", nil, "Member user id (repeatable)")
	return cmd
}

func projectUpdateCmd(a *app) *cobra.Command {
	var name, description string
	var members []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a project or replace its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var in services.UpdateProjectInput
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("member") {
				in.Members = &members
			}
			p, err := a.session.UpdateProject(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			renderProject(cmd.OutOrStdout(), *p)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringSliceVar(&members, "member", nil, "Member user id; replaces the member list")
	return cmd
}
