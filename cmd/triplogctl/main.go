// Command triplogctl es el CLI de administración: habla con el server por
// HTTP usando un token de sesión admin.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

func main() {
	root := &cobra.Command{
		Use:          "triplogctl",
		Short:        "Administración de invitaciones y accesos de triplog",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server",
		envOr("TRIPLOG_SERVER", "http://localhost:8080"), "URL base del server")
	root.PersistentFlags().StringVar(&authToken, "token",
		os.Getenv("TRIPLOG_TOKEN"), "token de sesión admin (o TRIPLOG_TOKEN)")

	root.AddCommand(inviteCmd())
	root.AddCommand(accessCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
