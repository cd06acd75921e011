package main

import (
	"net/http"

	"github.com/spf13/cobra"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/invites"
)

func inviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Gestión de invitaciones",
	}
	cmd.AddCommand(inviteCreateCmd(), inviteListCmd(), inviteRevokeCmd(), inviteValidateCmd())
	return cmd
}

func inviteCreateCmd() *cobra.Command {
	var email, role string
	var trips []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Crea una invitación y muestra el código",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.InviteResponse
			err := newClient().do(http.MethodPost, "/api/invites", dto.CreateInviteRequest{
				Email:   email,
				Role:    role,
				TripIDs: trips,
			}, &out)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email destinatario (opcional, liga la invitación)")
	cmd.Flags().StringVar(&role, "role", "viewer", "rol a otorgar: editor|viewer")
	cmd.Flags().StringSliceVar(&trips, "trip", nil, "trip id a vincular (repetible)")
	_ = cmd.MarkFlagRequired("trip")
	return cmd
}

func inviteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lista todas las invitaciones",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []dto.InviteResponse
			if err := newClient().do(http.MethodGet, "/api/invites", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func inviteRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <invite-id>",
		Short: "Revoca una invitación pendiente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().do(http.MethodDelete, "/api/invites/"+args[0], nil, nil)
		},
	}
}

func inviteValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <code>",
		Short: "Valida un código de invitación",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out dto.ValidateResponse
			if err := newClient().do(http.MethodGet, "/api/invites/validate/"+args[0], nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}
