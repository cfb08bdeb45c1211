package main

import (
	"os"

	"github.com/spf13/cobra"

	"calsuite/internal/bootstrap"
	"calsuite/internal/config"
	appLog "calsuite/internal/log"
	"calsuite/internal/suite"
)

const version = "0.1.0"

// rootFlags holds persistent CLI flag values shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		appLog.Error("command failed", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "calsuite",
		Short:         "Personal calendar suite with ICS export and subscriptions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "./calsuite.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (overrides config if set)")

	root.AddCommand(
		newServeCommand(flags),
		newExportCommand(flags),
		newAgendaCommand(flags),
	)
	return root
}

// load reads the config, applies the log level and builds the suite.
func load(flags *rootFlags) (*config.Config, *suite.Suite, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}

	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	appLog.SetLevel(level)

	s, err := bootstrap.Build(conf)
	if err != nil {
		return nil, nil, err
	}

	appLog.Info("effective config",
		"config_path", flags.configPath,
		"listen", conf.Listen,
		"active", conf.Active,
		"calendars", len(conf.Calendars),
		"subscriptions", len(bootstrap.Sources(conf)),
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"export_dir", conf.Export.Dir,
	)
	return conf, s, nil
}
