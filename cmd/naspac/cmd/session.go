package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/menu"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

const notSignedIn = "Not signed in"

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				st := in.client.Session().State()
				out := cmd.OutOrStdout()
				if !st.Authenticated() {
					fmt.Fprintln(out, notSignedIn)
					return nil
				}

				fmt.Fprintf(out, "Role:    %s\n", st.Role)
				if st.UserID != nil {
					fmt.Fprintf(out, "User ID: %d\n", *st.UserID)
				}
				if st.Name != "" {
					fmt.Fprintf(out, "Name:    %s\n", st.Name)
				}
				if st.Email != "" {
					fmt.Fprintf(out, "Email:   %s\n", st.Email)
				}
				return nil
			})
		},
	}
}

func (a *app) menuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the menu of the signed-in role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				st := in.client.Session().State()
				out := cmd.OutOrStdout()
				if !st.Authenticated() {
					fmt.Fprintln(out, notSignedIn)
					return nil
				}

				var status *domain.PersonnelStatus
				if st.Role == domain.RolePersonnel {
					s, err := in.client.Backend.PersonnelStatus(ctx)
					if err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), "Onboarding status unavailable; document entries stay disabled")
					} else {
						status = s
					}
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, item := range menu.Build(st.Role, status) {
					target := item.Route
					if target == "" {
						target = string(item.Action)
					}
					state := ""
					if item.Disabled {
						state = "disabled"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.Key, item.Label, target, state)
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				if !in.client.Session().State().Authenticated() {
					fmt.Fprintln(cmd.OutOrStdout(), notSignedIn)
					return nil
				}
				_, err := in.auth.Logout(ctx, in.client)
				return err
			})
		},
	}
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and the expiry of the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				out := cmd.OutOrStdout()
				st := in.client.Session().State()
				if st.Authenticated() {
					fmt.Fprintf(out, "Session:    %s\n", st.Role)
				} else {
					fmt.Fprintf(out, "Session:    %s\n", notSignedIn)
				}

				token, err := in.client.Credentials.Token(ctx)
				if errors.Is(err, domain.ErrKeyNotFound) {
					fmt.Fprintln(out, "Credential: none")
					return nil
				}
				if err != nil {
					return fmt.Errorf("read credential: %w", err)
				}
				fmt.Fprintf(out, "Credential: %s\n", describeExpiry(token, time.Now()))
				return nil
			})
		},
	}
}

// describeExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func describeExpiry(token string, now time.Time) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "stored (not a JWT)"
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "stored (no expiry)"
	}
	if !exp.After(now) {
		return fmt.Sprintf("expired at %s", exp.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("expires at %s (in %s)", exp.UTC().Format(time.RFC3339), exp.Sub(now).Round(time.Second))
}
