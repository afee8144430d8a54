// Command plannerctl is a terminal client for the project planner API.
package main

import (
	"fmt"
	"io"
	"os"

	"project-planner/client"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultServer = "http://localhost:5000/api"

type app struct {
	server    string
	credsPath string

	creds   client.CredentialStore
	api     *client.Client
	session *client.Session
}

// stderrNotifier prints transient notifications next to command output.
type stderrNotifier struct{ w io.Writer }

func (n stderrNotifier) Success(msg string) { fmt.Fprintf(n.w, "ok: %s\n", msg) }
func (n stderrNotifier) Error(msg string)   { fmt.Fprintf(n.w, "error: %s\n", msg) }

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	server := os.Getenv("PLANNER_SERVER")
	if server == "" {
		server = defaultServer
	}

	cmd := &cobra.Command{
		Use:           "plannerctl",
		Short:         "Manage projects and tasks from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.creds = client.NewFileCredentialStore(a.credsPath)
			a.api = client.New(a.server, a.creds)
			a.session = client.NewSession(a.api, client.NewStore(), stderrNotifier{w: cmd.ErrOrStderr()})
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.server, "server", server, "API base URL (env PLANNER_SERVER)")
	cmd.PersistentFlags().StringVar(&a.credsPath, "credentials", client.DefaultCredentialsPath(), "Credentials file")

	cmd.AddCommand(
		registerCmd(a),
		loginCmd(a),
		logoutCmd(a),
		meCmd(a),
		projectsCmd(a),
		tasksCmd(a),
		viewCmd(a),
	)
	return cmd
}

func parseID(value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

func parseIDs(values []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		id, err := parseID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
