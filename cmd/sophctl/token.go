package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"soph-gateway/internal/domain"
	"soph-gateway/internal/token"
)

func newTokenCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and inspect SSO tokens",
	}
	cmd.AddCommand(newTokenMintCmd(flags))
	cmd.AddCommand(newTokenVerifyCmd(flags))
	return cmd
}

func newTokenMintCmd(flags *rootFlags) *cobra.Command {
	var (
		subject string
		email   string
		issuer  string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a test SSO entry token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := token.NewCodec(flags.secret)
			if err != nil {
				return err
			}
			now := time.Now()
			claims := jwt.MapClaims{
				"sub": subject,
				"iat": now.Unix(),
				"exp": now.Add(ttl).Unix(),
				"iss": issuer,
			}
			if email != "" {
				claims["email"] = email
			}
			signed, err := codec.Sign(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&issuer, "iss", "importadoras-25", "issuer claim")
	cmd.Flags().DurationVar(&ttl, "ttl", token.DefaultTTL, "validity window")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func newTokenVerifyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := token.NewCodec(flags.secret)
			if err != nil {
				return err
			}
			claims, err := codec.Verify(args[0])
			if err != nil {
				return fmt.Errorf("%w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sub:        %s\n", claims.Subject)
			if claims.Email != "" {
				fmt.Fprintf(out, "email:      %s\n", claims.Email)
			}
			if claims.Issuer != "" {
				fmt.Fprintf(out, "iss:        %s\n", claims.Issuer)
			}
			if claims.Origin != "" {
				fmt.Fprintf(out, "origem:     %s\n", claims.Origin)
			}
			if claims.Permission != "" {
				fmt.Fprintf(out, "permissao:  %s\n", claims.Permission)
			}
			fmt.Fprintf(out, "iat:        %s\n", claims.IssuedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "exp:        %s\n", claims.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func formatAccessUntil(e *domain.Entitlement) string {
	if e.AccessUntil == nil {
		return "-"
	}
	return e.AccessUntil.Format("2006-01-02")
}
