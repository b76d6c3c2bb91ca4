package main

import (
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/auth"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/aurora-ops/realtime/internal/store"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		email   string
		ttl     time.Duration
		org     string
		role    string
		project string
	)
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Mint a development JWT, optionally granting an organization membership",
		Long: `Mint a signed credential for a user.

With --org the user also gets an active membership in that organization,
and --project additionally creates a project there.

Examples:
  aurora-realtime token u-alice
  aurora-realtime token u-alice --org acme --role admin --project roadmap`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWT.TTL
			}
			user := domain.UserID(args[0])

			if org != "" {
				st, err := store.Open(cmd.Context(), cfg.Store)
				if err != nil {
					return err
				}
				defer st.Close()
				now := time.Now().UTC()
				if err := st.AddMembership(cmd.Context(), domain.Membership{
					UserID:         user,
					OrganizationID: domain.OrganizationID(org),
					Role:           domain.Role(role),
					Status:         domain.MembershipActive,
					CreatedAt:      now,
				}); err != nil {
					return fmt.Errorf("add membership: %w", err)
				}
				if project != "" {
					if _, err := st.CreateProject(cmd.Context(), domain.Project{
						ID:             domain.ProjectID(project),
						OrganizationID: domain.OrganizationID(org),
						Name:           project,
						CreatedAt:      now,
						UpdatedAt:      now,
					}); err != nil {
						return fmt.Errorf("create project: %w", err)
					}
				}
			}

			j, err := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer)
			if err != nil {
				return err
			}
			tok, err := j.Issue(user, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default jwt.ttl)")
	cmd.Flags().StringVar(&org, "org", "", "grant an active membership in this organization")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleMember), "membership role")
	cmd.Flags().StringVar(&project, "project", "", "also create this project in --org")
	return cmd
}
