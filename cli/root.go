// Package cli provides the recordstore command line.
package cli

import (
	"errors"
	"fmt"

	"github.com/meghashyamc/recordstore/config"
	"github.com/meghashyamc/recordstore/logger"
	"github.com/meghashyamc/recordstore/metrics"
	"github.com/meghashyamc/recordstore/store"
	"github.com/meghashyamc/recordstore/validation"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	env        string
	configFile string
	output     string
	keyField   string
	logPath    string
	kvdbPath   string
}

// app is the state shared by every subcommand once the store is open.
type app struct {
	options   rootOptions
	logger    logger.Logger
	store     *store.Store
	validator *validation.Validator
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "recordstore",
		Short: "Embedded record store with secondary indexes and trigram search",
		Long: `recordstore keeps JSON records in an append-only log and maintains
configurable secondary indexes over them, including trigram indexes for
fuzzy search.

Examples:
  recordstore put 1 '{"name":"Foo"}'
  recordstore get byName foo
  recordstore list byName --sort desc --limit 10
  recordstore search nameTrigrams "fo" --output yaml`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	cmd.PersistentFlags().StringVar(&a.options.env, "env", "", "Config environment (reads config/config.<env>.yaml)")
	cmd.PersistentFlags().StringVar(&a.options.configFile, "config", "", "Config file, overrides --env")
	cmd.PersistentFlags().StringVarP(&a.options.output, "output", "o", formatJSON, "Output format: json, yaml")
	cmd.PersistentFlags().StringVar(&a.options.keyField, "key-field", "", "Record key field, overrides config")
	cmd.PersistentFlags().StringVar(&a.options.logPath, "log-path", "", "Record log path, overrides config")
	cmd.PersistentFlags().StringVar(&a.options.kvdbPath, "kvdb-path", "", "Metadata database path, overrides config")

	cmd.AddCommand(newGetCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newPutCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newRebuildCmd(a))
	cmd.AddCommand(newReportCmd(a))

	for _, sub := range cmd.Commands() {
		sub.RunE = a.closing(sub.RunE)
	}

	return cmd
}

// closing wraps runE so the store is closed however the command ends. Cobra
// skips post-run hooks when RunE fails, which would leave bbolt locked.
func (a *app) closing(runE func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, a.close())
		}()
		return runE(cmd, args)
	}
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.options.configFile != "" {
		return config.LoadFile(a.options.configFile)
	}
	return config.Load(a.options.env)
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(a.options.output); err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrides := map[string]string{
		"store.key_field":    a.options.keyField,
		"store.log_path":     a.options.logPath,
		"database.kvdb_path": a.options.kvdbPath,
	}
	for key, value := range overrides {
		if value != "" {
			cfg.Set(key, value)
		}
	}

	a.logger = logger.NewWithLevel(cfg.GetLogLevel())

	a.validator, err = validation.New(a.logger, nil)
	if err != nil {
		return err
	}

	options, err := store.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	a.store, err = store.Open(a.logger, metrics.New(), options)
	if err != nil {
		return err
	}

	if _, err := a.store.LoadFromFile(); err != nil {
		a.store.Close()
		a.store = nil
		return err
	}

	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
