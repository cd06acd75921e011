package main

import (
	"net/http"

	"github.com/spf13/cobra"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/access"
)

func accessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Gestión de grants de acceso a trips",
	}
	cmd.AddCommand(accessGrantCmd(), accessListCmd(), accessUpdateCmd(), accessRevokeCmd())
	return cmd
}

func accessGrantCmd() *cobra.Command {
	var userID, role string

	cmd := &cobra.Command{
		Use:   "grant <trip-id>",
		Short: "Otorga acceso a un trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.GrantResponse
			err := newClient().do(http.MethodPost, "/api/trips/"+args[0]+"/access",
				dto.CreateGrantRequest{UserID: userID, Role: role}, &out)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "id del usuario destinatario")
	cmd.Flags().StringVar(&role, "role", "viewer", "rol: editor|viewer")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func accessListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <trip-id>",
		Short: "Lista los grants de un trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []dto.GrantResponse
			if err := newClient().do(http.MethodGet, "/api/trips/"+args[0]+"/access", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func accessUpdateCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "update <grant-id>",
		Short: "Cambia el rol de un grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().do(http.MethodPut, "/api/access/"+args[0],
				dto.UpdateGrantRequest{Role: role}, nil)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "rol nuevo: editor|viewer")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func accessRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <grant-id>",
		Short: "Revoca un grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().do(http.MethodDelete, "/api/access/"+args[0], nil, nil)
		},
	}
}
