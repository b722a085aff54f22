package main

import (
	"booking-service/internal/availability"
	"booking-service/internal/config"
	"booking-service/internal/storage/postgres"
	"booking-service/pkg/logger"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "slotctl",
		Short: "Booking service maintenance and availability diagnostics",
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (defaults to $CONFIG_PATH or ./config/config.yaml)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml"
	}

	return config.Load(path)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			storage, err := postgres.New(cfg.StoragePath)
			if err != nil {
				return err
			}
			defer storage.Close()

			applied, err := storage.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			log := logger.Setup(cfg.Env, os.Stderr)
			for _, name := range applied {
				log.Info("Migration applied", slog.String("name", name))
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", len(applied))
			return nil
		},
	}
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the available slots of a practitioner",
		RunE: func(cmd *cobra.Command, args []string) error {
			practitionerID, _ := cmd.Flags().GetString("practitioner")
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")
			modality, _ := cmd.Flags().GetString("modality")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			zone, err := availability.LoadZone(cfg.Timezone)
			if err != nil {
				return err
			}

			from, err := availability.ParseDate(fromFlag)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to := from
			if toFlag != "" {
				if to, err = availability.ParseDate(toFlag); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			storage, err := postgres.New(cfg.StoragePath)
			if err != nil {
				return err
			}
			defer storage.Close()

			log := logger.Setup(cfg.Env, os.Stderr)
			engine := availability.NewEngine(log, storage, zone)

			slots, err := engine.GetAvailableSlots(cmd.Context(), practitionerID,
				zone.StartOfDay(from), zone.StartOfDay(to), modality)
			if err != nil {
				return err
			}

			loc := zone.Location()
			fmt.Printf("%-25s %-25s %-12s %s\n", "START", "END", "MODALITY", "LOCATION")
			for _, s := range slots {
				fmt.Printf("%-25s %-25s %-12s %s\n",
					s.Start.In(loc).Format("2006-01-02 15:04 MST"),
					s.End.In(loc).Format("2006-01-02 15:04 MST"),
					s.Modality,
					s.LocationLabel,
				)
			}
			fmt.Printf("%d slot(s)\n", len(slots))
			return nil
		},
	}

	cmd.Flags().String("practitioner", "", "Practitioner id")
	cmd.Flags().String("from", "", "First date, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Last date, YYYY-MM-DD (defaults to --from)")
	cmd.Flags().String("modality", "", "Only slots offered in this modality")
	_ = cmd.MarkFlagRequired("practitioner")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}
