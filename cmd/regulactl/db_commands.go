package main

import (
	"fmt"
	"time"

	"go-regula/internal/common/apperr"
	"go-regula/internal/common/models"
	"go-regula/internal/database"
	"go-regula/internal/features/template"
	"go-regula/internal/features/user"
	"go-regula/pkg/utils"

	"github.com/spf13/cobra"
)

func newMigrateCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema or verify its version",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (%s)\n", database.SchemaVersion, s.db.Dialect)
			return nil
		},
	}
}

// defaultSeedUsers gives every role one account.
var defaultSeedUsers = []struct {
	Email string
	Role  models.Role
}{
	{"requester@regula.local", models.RoleRequester},
	{"reviewer@regula.local", models.RoleReviewer},
	{"executor@regula.local", models.RoleExecutor},
	{"admin@regula.local", models.RoleAdmin},
}

// demoTemplate is a two-step review then execution sign-off.
var demoTemplate = template.CreateTemplateInput{
	Name: "Standard access request",
	Steps: []template.Step{
		{Name: "Peer review", RequiredRole: models.RoleReviewer, SLAHours: 24},
		{Name: "Execution sign-off", RequiredRole: models.RoleExecutor, SLAHours: 8},
	},
}

func newSeedCommand(env *cliEnv) *cobra.Command {
	var tokenTTL time.Duration
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create one user per role and a demo template; existing rows are kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()
			out := cmd.OutOrStdout()

			seeded := make([]*user.User, 0, len(defaultSeedUsers))
			rows := make([][]string, 0, len(defaultSeedUsers))
			for _, seed := range defaultSeedUsers {
				state := "created"
				u, err := s.users.CreateUser(ctx, seed.Email, string(seed.Role))
				switch {
				case apperr.KindOf(err) == apperr.KindConflict:
					state = "exists"
					if u, err = s.userRepo.GetByEmail(ctx, seed.Email); err != nil {
						return err
					}
				case err != nil:
					return fmt.Errorf("seed %s: %w", seed.Email, err)
				}
				seeded = append(seeded, u)
				rows = append(rows, []string{u.ID, u.Email, string(u.Role), state})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Email", "Role", "State"}, rows, nil))

			state := "created"
			if _, err := s.templates.CreateTemplate(ctx, cliActor, demoTemplate); err != nil {
				if apperr.KindOf(err) != apperr.KindConflict {
					return fmt.Errorf("seed template: %w", err)
				}
				state = "already present"
			}
			fmt.Fprintf(out, "Template %q %s.\n", demoTemplate.Name, state)

			if tokenTTL <= 0 {
				return nil
			}
			utils.SetSecret(s.cfg.JWTSecret)
			fmt.Fprintln(out, "Dev tokens:")
			for _, u := range seeded {
				token, err := utils.GenerateToken(u.ID, u.Email, string(u.Role), tokenTTL)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-10s %s\n", u.Role, token)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "Lifetime of the printed dev tokens; 0 prints none")
	return cmd
}

func newTokenCommand(env *cliEnv) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a directory user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			u, err := s.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if u == nil {
				return apperr.NotFound("user %s not found", email)
			}

			utils.SetSecret(s.cfg.JWTSecret)
			token, err := utils.GenerateToken(u.ID, u.Email, string(u.Role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
