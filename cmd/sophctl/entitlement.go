package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"soph-gateway/internal/db/repository"
	"soph-gateway/internal/domain"
)

func newEntitlementCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entitlement",
		Short: "Inspect and grant access entitlements",
	}
	cmd.AddCommand(newEntitlementShowCmd(flags))
	cmd.AddCommand(newEntitlementGrantCmd(flags))
	return cmd
}

func newEntitlementShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openRepoDB(flags)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			ent, err := repository.NewEntitlementRepo(db).Get(cmd.Context(), args[0])
			if err != nil {
				var notFound *domain.NotFoundError
				if errors.As(err, &notFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "no entitlement record")
					return nil
				}
				return err
			}

			out := cmd.OutOrStdout()
			state := "expired"
			if ent.ValidAt(time.Now()) {
				state = "active"
			}
			fmt.Fprintf(out, "user:         %s\n", ent.UserID)
			if ent.Email != "" {
				fmt.Fprintf(out, "email:        %s\n", ent.Email)
			}
			fmt.Fprintf(out, "origin:       %s\n", ent.Origin)
			fmt.Fprintf(out, "access until: %s (%s)\n", formatAccessUntil(ent), state)
			fmt.Fprintf(out, "version:      %d\n", ent.Version)
			return nil
		},
	}
}

func newEntitlementGrantCmd(flags *rootFlags) *cobra.Command {
	var (
		email  string
		months int
		origin string
	)
	cmd := &cobra.Command{
		Use:   "grant <user-id>",
		Short: "Grant or extend access manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openRepoDB(flags)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			repo := repository.NewEntitlementRepo(db)
			userID := args[0]

			expectVersion := int64(0)
			if current, err := repo.Get(cmd.Context(), userID); err == nil {
				expectVersion = current.Version
			}

			now := time.Now()
			until := now.AddDate(0, months, 0)
			granted, err := repo.Upsert(cmd.Context(), &domain.Entitlement{
				UserID:      userID,
				Email:       email,
				Origin:      origin,
				AccessUntil: &until,
				UpdatedAt:   now,
			}, expectVersion)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted access to %s until %s\n", userID, formatAccessUntil(granted))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email stored on the record")
	cmd.Flags().IntVar(&months, "months", 6, "months of access from now")
	cmd.Flags().StringVar(&origin, "origin", "manual", "origin tag for the grant")
	return cmd
}
