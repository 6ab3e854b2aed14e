package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) forgotPasswordCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				message, err := in.auth.ForgotPassword(ctx, email)
				if err != nil {
					return userMessage(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email address")
	return cmd
}

func (a *app) resetPasswordCommand() *cobra.Command {
	var token, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the token from a reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			newPassword, err := passwordOrPrompt(cmd, password)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				message, err := in.auth.ResetPassword(ctx, token, newPassword)
				if err != nil {
					return userMessage(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "reset token")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}
