package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/docstore"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/docstore/migrations"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the postgres document table",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := databaseURL()
		if err != nil {
			return err
		}
		if err := migrations.Up(dsn); err != nil {
			return err
		}
		logger.Infof("migrate: database is up to date")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := databaseURL()
		if err != nil {
			return err
		}
		if err := migrations.Down(dsn); err != nil {
			return err
		}
		logger.Infof("migrate: all migrations rolled back")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [fixtures.yaml]",
	Short: "Load a tenant fixtures file into the postgres document table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := databaseURL()
		if err != nil {
			return err
		}
		fx, err := docstore.LoadFixtures(args[0])
		if err != nil {
			return err
		}
		tenants := make([]string, 0, len(fx))
		for id := range fx {
			tenants = append(tenants, id)
		}
		sort.Strings(tenants)

		gw := docstore.NewPostgresGateway(dsn)
		for _, id := range tenants {
			if err := gw.Insert(cmd.Context(), schema.NewTenant(id), fx[id]); err != nil {
				return fmt.Errorf("seed tenant %s failed, err: %w", id, err)
			}
			logger.Infof("seed: tenant %s, %d documents", id, len(fx[id]))
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func databaseURL() (string, error) {
	if cfg.DocStore.DSN == "" {
		return "", fmt.Errorf("docstore.dsn (or QUERYORCH_DATABASE_URL) is required")
	}
	return cfg.DocStore.DSN, nil
}
