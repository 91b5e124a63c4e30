package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/recommend"
	"github.com/neurowell/neurowell/routes"
	"github.com/neurowell/neurowell/services"
	"github.com/neurowell/neurowell/utils"
)

var (
	configPath string
	envFile    string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "neurowell",
	Short:   "NeuroWell wellness tracking backend",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap()
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reset streaks whose last check-in is more than a day old",
	Long: `Run one streak decay pass and exit.

Intended for cron or systemd timers. Safe to run concurrently with the server.`,
	RunE: runSweep,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd, sweepCmd, migrateCmd)
}

// bootstrap loads the dotenv file, configuration and logger shared by every command.
func bootstrap() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}
	config.Set(cfg)

	// Initialize logger early
	return utils.InitLogger(cfg)
}

func openDB() (*gorm.DB, error) {
	return config.InitDatabase(models.All()...)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}
	defer func() { _ = utils.Logger.Sync() }()

	db, err := openDB()
	if err != nil {
		return err
	}

	ai := recommend.NewClient(cfg, utils.Logger)
	r := routes.SetupRouter(db, ai, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.SweepEnabled {
		checkins := services.NewCheckInService(db, nil)
		utils.StartSweeper(ctx, cfg.SweepInterval, func(ctx context.Context, now time.Time) error {
			_, err := checkins.Sweep(ctx, now)
			return err
		})
		utils.Sugar.Infof("streak sweep every %s", cfg.SweepInterval)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, cancel); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
		return err
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	res, err := services.NewCheckInService(db, nil).Sweep(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scanned %d profiles, reset %d streaks\n", res.Scanned, res.ResetCount)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if _, err := openDB(); err != nil {
		return err
	}
	utils.Sugar.Info("database schema is up to date")
	return nil
}
