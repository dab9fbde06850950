package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/bootstrap"
	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/service/schedule"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Clinic scheduling administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config file (defaults to CONFIG_FILE or ./config.yaml)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(scheduleCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.LoadConfig()
	}
	return config.Load(path)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.MigrateUp(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := postgres.MigrateDown(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted migration %s\n", version)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the embedded migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrations, err := postgres.Migrations()
			if err != nil {
				return err
			}
			for _, m := range migrations {
				fmt.Fprintln(cmd.OutOrStdout(), m.Version)
			}
			return nil
		},
	})
	return cmd
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the administrator account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("create-admin needs the postgres driver, got %q", cfg.Database.Driver)
			}

			admin := cfg.Admin
			if v, _ := cmd.Flags().GetString("username"); v != "" {
				admin.Username = v
			}
			if v, _ := cmd.Flags().GetString("email"); v != "" {
				admin.Email = v
			}
			if v, _ := cmd.Flags().GetString("password"); v != "" {
				admin.Password = v
			}
			if admin.Password == "" {
				return fmt.Errorf("a password is required, pass --password or set CLINIC_ADMIN_PASSWORD")
			}

			store, closer, err := bootstrap.OpenStore(cfg.Database)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			created, err := bootstrap.EnsureAdmin(ctx, store, security.NewBcryptHasher(bcrypt.DefaultCost), admin)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created administrator %s\n", admin.Username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "administrator %s already exists\n", admin.Username)
			}
			return nil
		},
	}
	cmd.Flags().String("username", "", "Administrator username (defaults to admin.username)")
	cmd.Flags().String("email", "", "Administrator email (defaults to admin.email)")
	cmd.Flags().String("password", "", "Administrator password (defaults to admin.password)")
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Work with availability window files",
	}

	checkCmd := &cobra.Command{
		Use:   "check <windows.json>",
		Short: "Validate a batch of availability windows and optionally print a day's slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readWindows(args[0])
			if err != nil {
				return err
			}
			date, _ := cmd.Flags().GetString("date")
			minutes, _ := cmd.Flags().GetInt("slot-minutes")
			return checkSchedule(cmd.OutOrStdout(), inputs, date, time.Duration(minutes)*time.Minute)
		},
	}
	checkCmd.Flags().String("date", "", "Print the slots for this date (YYYY-MM-DD)")
	checkCmd.Flags().Int("slot-minutes", int(schedule.DefaultSlotDuration/time.Minute), "Slot length in minutes")
	cmd.AddCommand(checkCmd)
	return cmd
}

// readWindows accepts either a bare array of windows or {"windows": [...]},
// the body of the add-windows endpoint.
func readWindows(path string) ([]model.WindowInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var inputs []model.WindowInput
	if err := json.Unmarshal(data, &inputs); err == nil {
		return inputs, nil
	}
	var req model.AddWindowsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return req.Windows, nil
}

func checkSchedule(out io.Writer, inputs []model.WindowInput, date string, slotDuration time.Duration) error {
	windows, err := schedule.ValidateWindows(inputs)
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			fmt.Fprintln(out, appErr.Message)
			for _, d := range appErr.Details {
				fmt.Fprintf(out, "  - %s\n", d)
			}
		}
		return err
	}
	fmt.Fprintf(out, "%d window(s) valid\n", len(windows))

	if date == "" {
		return nil
	}
	if slotDuration <= 0 {
		return fmt.Errorf("slot-minutes must be positive")
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	day := schedule.GenerateSlots(windows, d, slotDuration, nil)
	if !day.Attends {
		fmt.Fprintf(out, "no attention on %s (%s)\n", d, day.Day)
		return nil
	}
	for _, s := range day.Slots {
		fmt.Fprintf(out, "%s-%s %s\n", s.Start, s.End, s.Room)
	}
	return nil
}
