package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"naspac-portal/internal/service"

	"github.com/spf13/cobra"
)

func (a *app) loginCommand() *cobra.Command {
	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the portal",
	}

	var nss, personnelPassword string
	personnel := &cobra.Command{
		Use:   "personnel",
		Short: "Sign in with an NSS number",
		Long: `Sign in as NSS personnel. The password is read from stdin when
--password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordOrPrompt(cmd, personnelPassword)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				result, err := in.auth.LoginPersonnel(ctx, in.client, nss, password)
				if err != nil {
					return userMessage(err)
				}
				printLogin(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	personnel.Flags().StringVar(&nss, "nss", "", "NSS number")
	personnel.Flags().StringVar(&personnelPassword, "password", "", "password")

	var staffID, staffPassword string
	staff := &cobra.Command{
		Use:   "staff",
		Short: "Sign in with a staff id",
		Long: `Sign in as an administrator, staff member or supervisor. When the
backend asks for a verification code, finish with "naspac verify-otp".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordOrPrompt(cmd, staffPassword)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				result, err := in.auth.LoginStaff(ctx, in.client, staffID, password)
				if err != nil {
					return userMessage(err)
				}
				printLogin(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	staff.Flags().StringVar(&staffID, "staff-id", "", "staff id")
	staff.Flags().StringVar(&staffPassword, "password", "", "password")

	login.AddCommand(personnel, staff)
	return login
}

func (a *app) verifyOTPCommand() *cobra.Command {
	var tempToken, otp string
	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Finish a staff login with the verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, in *instance) error {
				result, err := in.auth.VerifyOTP(ctx, in.client, tempToken, otp)
				if err != nil {
					return userMessage(err)
				}
				printLogin(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tempToken, "temp-token", "", "temporary token printed by login staff")
	cmd.Flags().StringVar(&otp, "otp", "", "verification code")
	return cmd
}

func printLogin(w io.Writer, result *service.LoginResult) {
	if result.OTPRequired {
		fmt.Fprintln(w, result.Message)
		fmt.Fprintf(w, "Run: naspac verify-otp --temp-token %s --otp <code>\n", result.TempToken)
		return
	}
	fmt.Fprintf(w, "Signed in as %s\n", result.Session.Role)
	if result.Redirect != "" {
		fmt.Fprintf(w, "Next: %s\n", result.Redirect)
	}
}

// passwordOrPrompt returns flagValue, or the first line of stdin
func passwordOrPrompt(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
