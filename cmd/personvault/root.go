package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"personvault/internal/platform/config"
)

// NewRootCmd creates the personvault command with its subcommands. Each
// invocation resolves configuration into its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "personvault",
		Short:         "Identity resolution and bitemporal person history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd, v)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("storage", "", "storage backend (postgres or memory)")

	root.AddCommand(
		newServeCmd(v),
		newInitDBCmd(v),
	)

	return root
}

// initViper applies defaults, env bindings, the optional config file and
// flag bindings so precedence is flag > env > file > default.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("personvault")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/personvault")
		// A missing file is fine; parse errors are not.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
		return fmt.Errorf("binding log-level flag: %w", err)
	}
	if err := v.BindPFlag("storage", flags.Lookup("storage")); err != nil {
		return fmt.Errorf("binding storage flag: %w", err)
	}
	return nil
}
