package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/identity"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with WorkNest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				var err error
				if email, err = promptLine("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				var err error
				if password, err = promptPassword("Password: "); err != nil {
					return err
				}
			}

			user, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			displayAppname()
			fmt.Printf("Logged in as %s (%s)\n", user.FullName(), user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(_ *cobra.Command, _ []string) error {
			a.session.Logout()
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.session.Authorize(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("%s <%s>\nrole: %s\n", user.FullName(), user.Email, user.Role)
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var req identity.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new WorkNest account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				var err error
				if req.Password, err = promptPassword("Password: "); err != nil {
					return err
				}
				if req.ConfirmPassword, err = promptPassword("Confirm password: "); err != nil {
					return err
				}
			} else if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.Password
			}

			resp, err := a.identity.Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Request or complete a password reset",
	}

	var email string
	request := &cobra.Command{
		Use:   "request",
		Short: "Mail a password reset link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := a.identity.ResetPasswordRequest(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
	request.Flags().StringVar(&email, "email", "", "account email")
	_ = request.MarkFlagRequired("email")

	var token string
	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password using a reset token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			newPassword, err := promptPassword("New password: ")
			if err != nil {
				return err
			}
			confirmPassword, err := promptPassword("Confirm new password: ")
			if err != nil {
				return err
			}
			resp, err := a.identity.ResetPassword(cmd.Context(), token, identity.ResetPasswordBody{
				NewPassword:        newPassword,
				ConfirmNewPassword: confirmPassword,
			})
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			if resp.Success {
				fmt.Println("Password updated. You can now log in.")
			}
			return nil
		},
	}
	confirm.Flags().StringVar(&token, "token", "", "reset token from the email link")
	_ = confirm.MarkFlagRequired("token")

	cmd.AddCommand(request, confirm)
	return cmd
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	return promptLine(prompt)
}
