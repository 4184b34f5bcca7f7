package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"personvault/internal/dbinit"
	"personvault/internal/platform/config"
	"personvault/internal/platform/postgres"
)

func newInitDBCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create the schema, or run a SQL script against the database",
		Long: "Without --file the embedded schema is applied. With --file the script is " +
			"split on ';' after dropping '--' comment lines and each statement is executed in order.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInitDB(cmd, v)
		},
	}
	cmd.Flags().String("file", "", "SQL script to execute instead of the embedded schema")
	return cmd
}

func runInitDB(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Storage != config.StoragePostgres {
		return errors.New("initdb requires postgres storage")
	}

	ctx := cmd.Context()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		n, err = dbinit.LoadFile(ctx, db, file)
	} else {
		n, err = dbinit.ApplySchema(ctx, db)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "executed %d statements\n", n)
	return err
}
