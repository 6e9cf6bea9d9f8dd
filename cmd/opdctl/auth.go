package main

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("OPDCTL_PASSWORD")
			}
			if password == "" {
				a.printf("Password: ")
				line, err := bufio.NewReader(a.in).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			tok, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.session.Login(tok.AccessToken, tok.User); err != nil {
				return err
			}
			a.printf("Logged in as %s (%s)\n", tok.User.FullName, tok.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default: $OPDCTL_PASSWORD or prompt)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(); err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			profile, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.session.UpdateUser(*profile); err != nil {
				return err
			}
			a.printf("%s <%s>\nrole: %s\npermissions: %s\nprint offset: top %dpx, left %dpx\n",
				profile.FullName, profile.Email, profile.Role, strings.Join(profile.Permissions, ", "),
				profile.PrintSettings.Top, profile.PrintSettings.Left)
			return nil
		},
	}
}
