package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/printout"
)

func (a *app) printCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print offsets and prescriptions",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return a.requireLogin()
		},
	}
	cmd.AddCommand(a.printSettingsCmd(), a.printVisitCmd())
	return cmd
}

func (a *app) printSettingsCmd() *cobra.Command {
	var top, left int
	var sketch bool
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the print offset on pre-printed paper",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			ps := profile.PrintSettings

			if cmd.Flags().Changed("top") || cmd.Flags().Changed("left") {
				if cmd.Flags().Changed("top") {
					ps.Top = top
				}
				if cmd.Flags().Changed("left") {
					ps.Left = left
				}
				// Preview the clamped value before the server stores it.
				a.printf("Preview: %s\n", printout.Preview(ps))
				saved, err := a.client.UpdatePrintSettings(cmd.Context(), ps)
				if err != nil {
					return err
				}
				ps = *saved
				profile.PrintSettings = ps
			}
			if err := a.session.UpdateUser(*profile); err != nil {
				return err
			}

			overlay := printout.Preview(ps)
			a.printf("Print offset: %s\n", overlay)
			if sketch {
				a.printf("%s", overlay.Sketch(42, 30))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", model.DefaultPrintTop, fmt.Sprintf("distance from top in px (0-%d)", model.MaxPrintTop))
	cmd.Flags().IntVar(&left, "left", model.DefaultPrintLeft, fmt.Sprintf("distance from left in px (0-%d)", model.MaxPrintLeft))
	cmd.Flags().BoolVar(&sketch, "sketch", false, "draw the A4 preview")
	return cmd
}

func (a *app) printVisitCmd() *cobra.Command {
	var out string
	var server bool
	cmd := &cobra.Command{
		Use:   "visit <visit-id>",
		Short: "Render a visit's prescription to an HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid visit id %q", args[0])
			}

			if server {
				html, err := a.client.PrintVisit(ctx, id, true)
				if err != nil {
					return err
				}
				if out == "" {
					_, err = a.out.Write(html)
					return err
				}
				return os.WriteFile(out, html, 0o644)
			}

			visit, err := a.client.GetVisit(ctx, id)
			if err != nil {
				return err
			}
			path, err := a.writePrint(ctx, visit, nil, out)
			if err != nil {
				return err
			}
			a.printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: print dir)")
	cmd.Flags().BoolVar(&server, "server", false, "fetch the server-rendered page instead")
	return cmd
}
