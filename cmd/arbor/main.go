// Command arbor manages an arbor-backed database: it applies and rolls
// back SQL-file migrations and seeds YAML fixtures, driven by a YAML
// config file with environment overrides.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/config"
	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/migrate"
	"github.com/syssam/arbor/seed"
)

var (
	cfgPath string
	dbPath  string
	dir     string
)

func main() {
	root := &cobra.Command{
		Use:           "arbor",
		Short:         "Manage an arbor database: migrations and seed data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "arbor.yaml", "config file path")
	root.PersistentFlags().StringVar(&dbPath, "database", "", "database path (overrides config)")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().StringVarP(&dir, "dir", "d", "migrations", "migrations directory")

	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration batch",
		RunE:  runRollback,
	}
	rollbackCmd.Flags().StringVarP(&dir, "dir", "d", "migrations", "migrations directory")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
	statusCmd.Flags().StringVarP(&dir, "dir", "d", "migrations", "migrations directory")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert YAML fixture data",
		RunE:  runSeed,
	}
	seedCmd.Flags().StringVarP(&dir, "dir", "d", "", "fixtures directory (defaults to config seed.dir)")

	root.AddCommand(migrateCmd, rollbackCmd, statusCmd, seedCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "arbor:", err)
		os.Exit(1)
	}
}

func open() (*config.Config, dialect.Driver, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	drv, err := cfg.Open()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Log.Debug {
		drv = dialect.Debug(drv)
	}
	return cfg, drv, nil
}

func newRunner(drv dialect.Driver) (*migrate.Runner, error) {
	ms, err := migrate.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return migrate.NewRunner(drv, slog.Default()).Add(ms...), nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_, drv, err := open()
	if err != nil {
		return err
	}
	defer drv.Close()
	runner, err := newRunner(drv)
	if err != nil {
		return err
	}
	n, err := runner.Up(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
	return nil
}

func runRollback(cmd *cobra.Command, _ []string) error {
	_, drv, err := open()
	if err != nil {
		return err
	}
	defer drv.Close()
	runner, err := newRunner(drv)
	if err != nil {
		return err
	}
	n, err := runner.Rollback(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", n)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	_, drv, err := open()
	if err != nil {
		return err
	}
	defer drv.Close()
	runner, err := newRunner(drv)
	if err != nil {
		return err
	}
	statuses, err := runner.Status(cmd.Context())
	if err != nil {
		return err
	}
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = fmt.Sprintf("batch %d", s.Batch)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", s.Name, state)
	}
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, drv, err := open()
	if err != nil {
		return err
	}
	defer drv.Close()
	client := arbor.NewClient(arbor.Driver(drv))
	seedDir := dir
	if seedDir == "" {
		seedDir = cfg.Seed.Dir
	}
	return seed.New(client, slog.Default()).RunDir(cmd.Context(), seedDir)
}
