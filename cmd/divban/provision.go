package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aryonoco/divban/internal/provision"
)

func newProvisionCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "provision [service]",
		Short: "Provision the rootless identity, directories, and linger for one service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFromContext(cmd)
			service := args[0]
			ctx := cmd.Context()

			tx := provision.NewTransaction(dryRun, false)

			user, err := app.Engine.ProvisionServiceUser(ctx, tx, service)
			if err != nil {
				rollbackAndWarn(app, ctx, tx)
				return fmt.Errorf("provisioning user for %s: %w", service, err)
			}

			if err := app.Engine.EnsureServiceDirectories(ctx, tx, *user, service); err != nil {
				rollbackAndWarn(app, ctx, tx)
				return fmt.Errorf("provisioning directories for %s: %w", service, err)
			}

			if err := app.Engine.EnableLinger(ctx, tx, user.Name, user.UID); err != nil {
				rollbackAndWarn(app, ctx, tx)
				return fmt.Errorf("enabling linger for %s: %w", service, err)
			}

			if !dryRun {
				if err := app.Journal.Record(service, tx.Log()); err != nil {
					app.Logger.Warn("failed to record provisioning to journal", "service", service, "error", err)
				}
			}

			fmt.Printf("provisioned %s as %s (uid %d)\n", service, user.Name, user.UID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip every step that would mutate the host; skipped steps are not listed")
	return cmd
}

func newRemoveCommand() *cobra.Command {
	var force, purgeData bool

	cmd := &cobra.Command{
		Use:   "remove [service]",
		Short: "Tear down a service's rootless identity, directories, and linger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFromContext(cmd)
			service := args[0]
			ctx := cmd.Context()

			settings := app.Engine.Settings
			username := settings.Username(service)
			uid, err := app.Inventory.UIDOf(ctx, username)
			if err != nil {
				return fmt.Errorf("looking up %s: %w", username, err)
			}
			user := provision.ServiceUser{Name: username, UID: uid, Home: "/home/" + username}

			tx := provision.NewTransaction(false, force)
			if err := app.Engine.Remove(ctx, tx, user, purgeData); err != nil {
				return fmt.Errorf("removing %s: %w", service, err)
			}

			fmt.Printf("removed %s\n", service)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm the destructive teardown")
	cmd.Flags().BoolVar(&purgeData, "purge-data", false, "also delete the service's data directory")
	return cmd
}

func rollbackAndWarn(app *App, ctx context.Context, tx *provision.Transaction) {
	for _, err := range app.Engine.Rollback(ctx, tx) {
		app.Logger.Warn("rollback step failed", "error", err)
	}
}
