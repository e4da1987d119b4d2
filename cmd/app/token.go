package main

import (
	"fmt"
	"time"

	"shiptrack/cmd"
	"shiptrack/internal/adapters/out/jwtauth"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var userID, role string

	command := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.JWT.Validate(); err != nil {
				return err
			}

			id := kernel.NewUUID()
			if userID != "" {
				if id, err = kernel.UUIDFromString(userID); err != nil {
					return err
				}
			}
			r, err := identity.ParseRole(role)
			if err != nil {
				return err
			}
			principal, err := identity.NewPrincipal(id, r)
			if err != nil {
				return err
			}

			auth, err := jwtauth.New(jwtauth.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL})
			if err != nil {
				return err
			}
			token, err := auth.Mint(principal, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(c.ErrOrStderr(), "user %s, role %s\n", id, r)
			fmt.Fprintln(c.OutOrStdout(), token)
			return nil
		},
	}
	command.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	command.Flags().StringVar(&role, "role", "customer", "customer, agent or admin")
	return command
}
