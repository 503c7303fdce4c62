package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"internportal/internal/app"
	"internportal/internal/config"
	"internportal/internal/database"
	"internportal/internal/domain/account"
	"internportal/internal/observability"
	"internportal/internal/repository/sqlstore"
	"internportal/internal/security"
)

// Admins cannot sign up over HTTP without an existing super admin, so the
// first accounts come from here.
func newCreateAdminCommand() *cobra.Command {
	var (
		email    string
		name     string
		password string
		super    bool
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin or super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg.LogLevel)
			db, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, cfg.DBDriver); err != nil {
				return err
			}

			authService, err := app.NewAuthService(
				sqlstore.NewAccountRepository(db),
				security.NewPasswordHasher(cfg.BcryptCost),
				security.NewJWTProvider(cfg.JWTSecret),
				logger,
				app.AuthOptions{TokenTTL: cfg.TokenTTL},
			)
			if err != nil {
				return err
			}

			role := account.RoleAdmin
			if super {
				role = account.RoleSuperAdmin
			}
			created, err := authService.Bootstrap(cmd.Context(), app.RegisterInput{
				Role:     role,
				Email:    email,
				Name:     name,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", created.Role, created.Email, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password (or ADMIN_PASSWORD)")
	cmd.Flags().BoolVar(&super, "super", false, "create a super admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
