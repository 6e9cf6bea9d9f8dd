package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-desk/internal/confirm"
	"github.com/jwalitptl/opd-desk/internal/model"
)

func (a *app) loggedIn(cmd *cobra.Command, args []string) error {
	if err := a.setup(); err != nil {
		return err
	}
	return a.requireLogin()
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "users",
		Short:             "Manage clinic staff accounts and their permissions",
		PersistentPreRunE: a.loggedIn,
	}
	perms := &cobra.Command{
		Use:   "perms",
		Short: "Override or reset a user's permissions",
	}
	perms.AddCommand(a.usersPermsSetCmd(), a.usersPermsResetCmd())
	cmd.AddCommand(
		a.usersListCmd(), a.usersAddCmd(),
		a.usersActiveCmd("activate", true), a.usersActiveCmd("deactivate", false),
		a.usersRemoveCmd(), perms,
	)
	return cmd
}

// resolveUser accepts a user id, a unique id prefix or an email.
func (a *app) resolveUser(ctx context.Context, ref string) (*model.Member, error) {
	ref = strings.TrimSpace(ref)
	members, err := a.client.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var found []*model.Member
	for _, m := range members {
		switch {
		case strings.EqualFold(m.Email, ref), m.ID.String() == ref:
			return m, nil
		case strings.HasPrefix(m.ID.String(), ref):
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("no user matches %q", ref)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%q matches several users, use the email", ref)
}

func (a *app) usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the clinic's users",
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := a.client.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			writeMembers(a.out, members)
			return nil
		},
	}
}

func (a *app) usersAddCmd() *cobra.Command {
	var req model.CreateUserRequest
	var role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a doctor or assistant account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = model.Role(strings.ToUpper(role))
			m, err := a.client.CreateUser(cmd.Context(), &req)
			if err != nil {
				return err
			}
			a.printf("Created %s <%s> as %s (%s)\n", m.FullName, m.Email, m.Role, shortID(m.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password, at least 8 characters")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&role, "role", "assistant", "doctor or assistant")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) usersActiveCmd(use string, active bool) *cobra.Command {
	short := "Allow a user to sign in again"
	if !active {
		short = "Stop a user from signing in"
	}
	return &cobra.Command{
		Use:   use + " <user>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.resolveUser(ctx, args[0])
			if err != nil {
				return err
			}
			m, err = a.client.UpdateUser(ctx, m.ID, &model.UpdateUserRequest{IsActive: &active})
			if err != nil {
				return err
			}
			state := "active"
			if !m.IsActive {
				state = "inactive"
			}
			a.printf("%s is now %s\n", m.Email, state)
			return nil
		},
	}
}

func (a *app) usersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user>",
		Short: "Delete a user without recorded activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.resolveUser(ctx, args[0])
			if err != nil {
				return err
			}
			var gate confirm.Machine
			ran, err := confirm.Ask(ctx, &gate, a.prompter(), confirm.Action{
				Name:   "remove",
				Prompt: fmt.Sprintf("Delete %s permanently?", m.Email),
				Run: func(ctx context.Context) error {
					return a.client.DeleteUser(ctx, m.ID)
				},
			})
			if err != nil {
				return err
			}
			if !ran {
				a.printf("Cancelled\n")
				return nil
			}
			a.printf("Removed %s\n", m.Email)
			return nil
		},
	}
}

func (a *app) usersPermsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <user> [permission...]",
		Short: "Replace a user's permissions; none revokes everything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.resolveUser(ctx, args[0])
			if err != nil {
				return err
			}
			m, err = a.client.SetPermissions(ctx, m.ID, args[1:])
			if err != nil {
				return err
			}
			a.printf("%s: %s\n", m.Email, orDash(strings.Join(m.Permissions, ", ")))
			return nil
		},
	}
}

func (a *app) usersPermsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <user>",
		Short: "Return a user to their role's default permissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.resolveUser(ctx, args[0])
			if err != nil {
				return err
			}
			m, err = a.client.ResetPermissions(ctx, m.ID)
			if err != nil {
				return err
			}
			a.printf("%s: %s (role defaults)\n", m.Email, strings.Join(m.Permissions, ", "))
			return nil
		},
	}
}

func (a *app) clinicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "clinic",
		Short:             "Clinic and doctor letterhead details",
		PersistentPreRunE: a.loggedIn,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the clinic and the doctor prescriptions print under",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info, err := a.client.Clinic(ctx)
			if err != nil {
				return err
			}
			c := info.Clinic
			a.printf("%s\n  address: %s\n  phone: %s\n  email: %s\n", c.Name, orDash(c.Address), orDash(c.Phone), orDash(c.Email))
			if info.IsOwner {
				a.printf("  you own this clinic\n")
			}
			doc, err := a.client.DoctorProfile(ctx)
			if err != nil {
				return err
			}
			a.printf("Dr. %s, %s\n  %s\n  reg. no. %s\n", doc.FullName, orDash(doc.Qualification),
				orDash(doc.Specialization), orDash(doc.RegistrationNumber))
			return nil
		},
	})
	return cmd
}
