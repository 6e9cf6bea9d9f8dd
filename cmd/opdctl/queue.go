package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-desk/internal/confirm"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/queue"
)

func (a *app) queueCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Work with the day's OPD queue",
	}
	cmd.PersistentFlags().StringVar(&date, "date", "today", "queue date (YYYY-MM-DD, today, tomorrow, +N)")

	// load returns a coordinator holding the selected day.
	load := func(ctx context.Context, opts ...queue.Option) (*queue.Coordinator, error) {
		if err := a.requireLogin(); err != nil {
			return nil, err
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		opts = append([]queue.Option{queue.WithPollInterval(a.cfg.PollInterval)}, opts...)
		c := queue.New(a.client, d, opts...)
		if _, err := c.LoadQueue(ctx, d); err != nil {
			return nil, err
		}
		return c, nil
	}

	cmd.AddCommand(
		a.queueShowCmd(load),
		a.queueAddCmd(load),
		a.queueStatusCmd(load),
		a.queueStartCmd(load),
		a.queueMoveCmd(load),
		a.queueVisitCmd(load),
		a.queueRemoveCmd(load),
		a.queueFollowUpsCmd(&date),
	)
	return cmd
}

type queueLoader func(ctx context.Context, opts ...queue.Option) (*queue.Coordinator, error)

func (a *app) queueShowCmd(load queueLoader) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the queue with its counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				c, err := load(cmd.Context())
				if err != nil {
					return err
				}
				writeQueue(a.out, c.Snapshot())
				return nil
			}
			// The initial load already reports through the callback.
			c, err := load(cmd.Context(), queue.WithOnChange(func(s queue.Snapshot) {
				a.printf("\n%s\n", s.FetchedAt.Format("15:04:05"))
				writeQueue(a.out, s)
			}))
			if err != nil {
				return err
			}
			c.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep refreshing until interrupted")
	return cmd
}

func (a *app) queueAddCmd(load queueLoader) *cobra.Command {
	var (
		patient    string
		complaints []string
		custom     string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a patient to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx)
			if err != nil {
				return err
			}
			patientID, err := a.resolvePatient(ctx, patient)
			if err != nil {
				return err
			}
			entry, err := c.AddToQueue(ctx, patientID, complaints, custom)
			if err != nil {
				return err
			}
			a.printf("Added as #%d (%s): %s\n", entry.QueueNumber, shortID(entry.ID), strings.Join(entry.ChiefComplaints, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&patient, "patient", "", "patient id, code or name")
	cmd.Flags().StringArrayVar(&complaints, "complaint", nil, "chief complaint from the list (repeatable)")
	cmd.Flags().StringVar(&custom, "custom", "", "other complaints, comma separated")
	return cmd
}

func (a *app) queueStatusCmd(load queueLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "status <entry> <WAITING|IN_PROGRESS|COMPLETED>",
		Short: "Change an entry's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx)
			if err != nil {
				return err
			}
			id, err := resolveEntry(c.Snapshot(), args[0])
			if err != nil {
				return err
			}
			status := model.AppointmentStatus(strings.ToUpper(strings.ReplaceAll(args[1], "-", "_")))
			entry, err := c.TransitionStatus(ctx, id, status)
			if err != nil {
				return err
			}
			a.printf("#%d is now %s\n", entry.QueueNumber, entry.Status)
			return nil
		},
	}
}

func (a *app) queueStartCmd(load queueLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "start <entry>",
		Short: "Start the consultation for an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx)
			if err != nil {
				return err
			}
			id, err := resolveEntry(c.Snapshot(), args[0])
			if err != nil {
				return err
			}
			seed, err := c.StartConsultation(ctx, id)
			if err != nil {
				return err
			}
			a.printf("Consultation started for %s (%s)\nComplaints: %s\nNext: opdctl visit new --appointment %s --diagnosis ...\n",
				seed.Patient.FullName, seed.Patient.PatientCode, strings.Join(seed.Complaints, ", "), seed.AppointmentID)
			return nil
		},
	}
}

func (a *app) queueMoveCmd(load queueLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "move <entry> <up|down>",
		Short: "Move a waiting entry one place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx)
			if err != nil {
				return err
			}
			id, err := resolveEntry(c.Snapshot(), args[0])
			if err != nil {
				return err
			}
			dir, err := queue.ParseDirection(args[1])
			if err != nil {
				return err
			}
			moved, err := c.Reorder(ctx, id, dir)
			if err != nil {
				return err
			}
			if !moved {
				a.printf("Cannot move that entry %s\n", args[1])
				return nil
			}
			writeQueue(a.out, c.Snapshot())
			return nil
		},
	}
}

func (a *app) queueVisitCmd(load queueLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "visit <entry>",
		Short: "Show the visit recorded for an entry, if any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx)
			if err != nil {
				return err
			}
			id, err := resolveEntry(c.Snapshot(), args[0])
			if err != nil {
				return err
			}
			visit, err := c.ResolveExistingVisit(ctx, id)
			if err != nil {
				return err
			}
			if visit == nil {
				a.printf("No visit recorded yet; `opdctl visit new --appointment %s` starts one\n", id)
				return nil
			}
			writeVisit(a.out, visit)
			return nil
		},
	}
}

func (a *app) queueRemoveCmd(load queueLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entry>",
		Short: "Remove a waiting entry from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx)
			if err != nil {
				return err
			}
			id, err := resolveEntry(c.Snapshot(), args[0])
			if err != nil {
				return err
			}
			var gate confirm.Machine
			ran, err := confirm.Ask(ctx, &gate, a.prompter(), confirm.Action{
				Name:   "remove",
				Prompt: "Remove this entry from the queue?",
				Run: func(ctx context.Context) error {
					return a.client.DeleteAppointment(ctx, id)
				},
			})
			if err != nil || !ran {
				return err
			}
			a.printf("Removed\n")
			return nil
		},
	}
}

func (a *app) queueFollowUpsCmd(date *string) *cobra.Command {
	return &cobra.Command{
		Use:   "followups",
		Short: "List patients due for a follow-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			d, err := parseDate(*date)
			if err != nil {
				return err
			}
			due, err := a.client.FollowUpsDue(cmd.Context(), d)
			if err != nil {
				return err
			}
			if len(due) == 0 {
				a.printf("No follow-ups due on %s\n", d)
				return nil
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "PATIENT\tCODE\tPHONE\tLAST VISIT\tDIAGNOSIS")
			for _, f := range due {
				fmt.Fprintf(tw, "%s\t%s\t%s\t#%d %s\t%s\n", f.Patient.FullName, f.Patient.PatientCode,
					orDash(f.Patient.Phone), f.VisitNumber, f.VisitDate, strings.Join(f.Diagnosis, ", "))
			}
			return tw.Flush()
		},
	}
}
