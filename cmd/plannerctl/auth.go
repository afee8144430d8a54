package main

import (
	"errors"
	"fmt"

	"project-planner/services"

	"github.com/spf13/cobra"
)

func registerCmd(a *app) *cobra.Command {
	var in services.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.session.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", res.User.FullName, res.User.Email, res.User.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (at least 6 characters)")
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	return cmd
}

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", res.User.FullName, res.User.Email, res.User.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.session.Logout()
		},
	}
}

func meCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", me.FullName, me.Email, me.ID.Hex())
			return nil
		},
	}
}

// currentUserID is the default assignee for new tasks.
func currentUserID(a *app) (string, error) {
	creds, err := a.creds.Load()
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", errors.New("not logged in, run plannerctl login")
	}
	return creds.UserID, nil
}
