package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	internaldb "soph-gateway/internal/db"
	"soph-gateway/internal/db/repository"
	"soph-gateway/internal/domain"
)

// openRepoDB opens the gateway database for direct repository access and
// applies pending migrations.
func openRepoDB(flags *rootFlags) (*sql.DB, error) {
	db, err := internaldb.OpenSQLite(flags.dbPath, "rwc", 1)
	if err != nil {
		return nil, err
	}
	if err := internaldb.RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newCodeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Manage self-hosted promo codes",
	}
	cmd.AddCommand(newCodeCreateCmd(flags))
	cmd.AddCommand(newCodeListCmd(flags))
	return cmd
}

func newCodeCreateCmd(flags *rootFlags) *cobra.Command {
	var (
		months     int
		boundEmail string
	)
	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Create a single-use promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := domain.NormalizeCode(args[0])
			if code == "" {
				return fmt.Errorf("code must not be empty")
			}
			db, err := openRepoDB(flags)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			repo := repository.NewPromoCodeRepo(db)
			if err := repo.Create(cmd.Context(), &domain.PromoCode{
				Code:           code,
				DurationMonths: months,
				BoundEmail:     boundEmail,
				CreatedAt:      time.Now(),
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d months)\n", code, months)
			return nil
		},
	}
	cmd.Flags().IntVar(&months, "months", 6, "access duration granted by the code")
	cmd.Flags().StringVar(&boundEmail, "email", "", "restrict the code to one email")
	return cmd
}

func newCodeListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List promo codes and their usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openRepoDB(flags)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			codes, err := repository.NewPromoCodeRepo(db).List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range codes {
				status := "available"
				if c.Used {
					status = fmt.Sprintf("used by %s", c.UsedBy)
				}
				fmt.Fprintf(out, "%-24s %2d months  %s\n", c.Code, c.DurationMonths, status)
			}
			if len(codes) == 0 {
				fmt.Fprintln(out, "no codes")
			}
			return nil
		},
	}
}
