package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/optionmgr"
)

func categoryNames() string {
	names := make([]string, 0, len(model.AllCategories()))
	for _, c := range model.AllCategories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func (a *app) optionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Manage reference options (" + categoryNames() + ")",
	}

	// manager loads the named category.
	manager := func(ctx context.Context, category string) (*optionmgr.Manager, error) {
		if err := a.requireLogin(); err != nil {
			return nil, err
		}
		c, ok := model.ParseCategory(category)
		if !ok {
			return nil, fmt.Errorf("unknown category %q, want one of %s", category, categoryNames())
		}
		m := optionmgr.New(a.client, c, a.prompter(), optionmgr.WithCache(a.vocab))
		if _, err := m.Load(ctx); err != nil {
			return nil, err
		}
		return m, nil
	}

	cmd.AddCommand(
		a.optionsListCmd(manager),
		a.optionsAddCmd(manager),
		a.optionsEditCmd(manager),
		a.optionsToggleCmd(manager),
		a.optionsDeleteCmd(manager),
		a.optionsBulkCmd(manager),
	)
	return cmd
}

type managerLoader func(ctx context.Context, category string) (*optionmgr.Manager, error)

func (a *app) optionsListCmd(load managerLoader) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List a category's options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			opts := m.Options()
			if activeOnly {
				filtered := opts[:0:0]
				for _, o := range opts {
					if o.IsActive {
						filtered = append(filtered, o)
					}
				}
				opts = filtered
			}
			a.printf("%s\n", m.Category().Label())
			writeOptions(a.out, opts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active-only", false, "hide inactive options")
	return cmd
}

type optionFormFlags struct {
	name        string
	description string
	order       int
	inactive    bool
}

func (f *optionFormFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "option name")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().IntVar(&f.order, "order", 0, "display order (1-999)")
	cmd.Flags().BoolVar(&f.inactive, "inactive", false, "save as inactive")
}

func (f *optionFormFlags) apply(cmd *cobra.Command, form *optionmgr.Form) {
	if cmd.Flags().Changed("name") {
		form.Name = f.name
	}
	if cmd.Flags().Changed("description") {
		form.Description = f.description
	}
	if cmd.Flags().Changed("order") {
		form.SetDisplayOrder(f.order)
	}
	if cmd.Flags().Changed("inactive") {
		form.IsActive = !f.inactive
	}
}

func (a *app) optionsAddCmd(load managerLoader) *cobra.Command {
	var flags optionFormFlags
	cmd := &cobra.Command{
		Use:   "add <category>",
		Short: "Add an option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			form := m.NewForm()
			flags.apply(cmd, form)
			saved, err := m.Save(cmd.Context(), form)
			if err != nil {
				return err
			}
			a.printf("Added %q at position %d\n", saved.Name, saved.DisplayOrder)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) optionsEditCmd(load managerLoader) *cobra.Command {
	var flags optionFormFlags
	cmd := &cobra.Command{
		Use:   "edit <category> <option>",
		Short: "Change an option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := load(ctx, args[0])
			if err != nil {
				return err
			}
			id, err := resolveOption(m.Options(), args[1])
			if err != nil {
				return err
			}
			form, err := m.EditForm(id)
			if err != nil {
				return err
			}
			flags.apply(cmd, form)
			if !form.Dirty() {
				a.printf("Nothing to change\n")
				return nil
			}
			saved, err := m.Save(ctx, form)
			if err != nil {
				if ok, aerr := m.Abandon(ctx, form); aerr == nil && !ok {
					a.printf("Unsaved: name=%q order=%d active=%t\n", form.Name, form.DisplayOrder, form.IsActive)
				}
				return err
			}
			a.printf("Saved %q\n", saved.Name)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) optionsToggleCmd(load managerLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <category> <option>",
		Short: "Activate or deactivate an option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			id, err := resolveOption(m.Options(), args[1])
			if err != nil {
				return err
			}
			ran, err := m.ToggleActive(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ran {
				a.printf("Cancelled\n")
				return nil
			}
			writeOptions(a.out, m.Options())
			return nil
		},
	}
}

func (a *app) optionsDeleteCmd(load managerLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category> <option>",
		Short: "Delete an option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			id, err := resolveOption(m.Options(), args[1])
			if err != nil {
				return err
			}
			ran, err := m.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ran {
				a.printf("Cancelled\n")
				return nil
			}
			a.printf("Deleted\n")
			return nil
		},
	}
}

func (a *app) optionsBulkCmd(load managerLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk <category> <activate|deactivate> <option>...",
		Short: "Activate or deactivate several options",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var active bool
			switch strings.ToLower(args[1]) {
			case "activate":
				active = true
			case "deactivate":
			default:
				return fmt.Errorf("unknown bulk action %q, want activate or deactivate", args[1])
			}

			m, err := load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, ref := range args[2:] {
				id, err := resolveOption(m.Options(), ref)
				if err != nil {
					return err
				}
				if err := m.Select(id); err != nil {
					return err
				}
			}
			changed, err := m.BulkSetActive(cmd.Context(), active)
			if err != nil {
				return err
			}
			a.printf("%d option(s) changed\n", changed)
			return nil
		},
	}
}
