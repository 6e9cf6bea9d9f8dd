package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/opd-desk/internal/config"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/postgres"
	"github.com/jwalitptl/opd-desk/migrations"
	"github.com/jwalitptl/opd-desk/pkg/logger"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the OPD database schema",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.NewLogger(&logger.Config{Level: logger.InfoLevel, TimeFormat: time.RFC3339}).SetGlobal()
		},
		SilenceUsage: true,
	}
	rootCmd.AddCommand(upCmd(), downCmd(), forceCmd(), versionCmd(), bootstrapCmd(), adminCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*sqlx.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return postgres.NewDB(ctx, cfg.Database)
}

// withMigrator runs fn against the embedded migrations.
func withMigrator(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	dbDriver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	return fn(m)
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *migrate.Migrate) error {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate up: %w", err)
				}
				log.Info().Msg("migrations complete")
				return nil
			})
		},
	}
}

func downCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *migrate.Migrate) error {
				err := m.Steps(-steps)
				if errors.Is(err, migrate.ErrNoChange) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func forceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			return withMigrator(cmd.Context(), func(m *migrate.Migrate) error {
				if err := m.Force(version); err != nil {
					return fmt.Errorf("force version: %w", err)
				}
				log.Info().Int("version", version).Msg("forced version")
				return nil
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
				return nil
			})
		},
	}
}

// bootstrapCmd creates the first clinic and its doctor account.
func bootstrapCmd() *cobra.Command {
	var clinicName, email, fullName, password string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create a clinic with an initial doctor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := security.NewBcryptHasher(0).Hash(password)
			if err != nil {
				return err
			}

			clinic := &model.Clinic{Name: clinicName}
			if err := postgres.NewClinicRepository(db).Create(ctx, clinic); err != nil {
				return fmt.Errorf("create clinic: %w", err)
			}
			doctor := &model.User{
				ClinicID:     clinic.ID,
				Email:        email,
				FullName:     fullName,
				Role:         model.RoleDoctor,
				PasswordHash: hash,
				PrintTop:     model.DefaultPrintTop,
				PrintLeft:    model.DefaultPrintLeft,
				IsActive:     true,
			}
			if err := postgres.NewUserRepository(db).Create(ctx, doctor); err != nil {
				return fmt.Errorf("create doctor: %w", err)
			}
			clinic.OwnerID = &doctor.ID
			if err := postgres.NewClinicRepository(db).Update(ctx, clinic); err != nil {
				return fmt.Errorf("set clinic owner: %w", err)
			}

			log.Info().Str("clinic_id", clinic.ID.String()).Str("user_id", doctor.ID.String()).Msg("clinic bootstrapped")
			return nil
		},
	}
	cmd.Flags().StringVar(&clinicName, "clinic", "", "clinic name")
	cmd.Flags().StringVar(&email, "email", "", "doctor login email")
	cmd.Flags().StringVar(&fullName, "name", "", "doctor full name")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	for _, f := range []string{"clinic", "email", "name", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// adminCmd creates an ADMIN account homed in an existing clinic, which it
// also manages.
func adminCmd() *cobra.Command {
	var clinicID, email, fullName, password string
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create an admin account that manages clinics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home, err := uuid.Parse(clinicID)
			if err != nil {
				return fmt.Errorf("invalid clinic id: %w", err)
			}
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := security.NewBcryptHasher(0).Hash(password)
			if err != nil {
				return err
			}
			admin := &model.User{
				ClinicID:     home,
				Email:        email,
				FullName:     fullName,
				Role:         model.RoleAdmin,
				PasswordHash: hash,
				PrintTop:     model.DefaultPrintTop,
				PrintLeft:    model.DefaultPrintLeft,
				IsActive:     true,
			}
			if err := postgres.NewUserRepository(db).Create(ctx, admin); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			if err := postgres.NewClinicRepository(db).AddAdmin(ctx, admin.ID, home); err != nil {
				return fmt.Errorf("assign clinic: %w", err)
			}

			log.Info().Str("clinic_id", home.String()).Str("user_id", admin.ID.String()).Msg("admin created")
			return nil
		},
	}
	cmd.Flags().StringVar(&clinicID, "clinic-id", "", "home clinic id")
	cmd.Flags().StringVar(&email, "email", "", "admin login email")
	cmd.Flags().StringVar(&fullName, "name", "", "admin full name")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	for _, f := range []string{"clinic-id", "email", "name", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
