package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type appContextKeyType struct{}

var appContextKey = appContextKeyType{}

var (
	verbose    bool
	userMode   bool
	configPath string
)

func appFromContext(cmd *cobra.Command) *App {
	return cmd.Context().Value(appContextKey).(*App)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "divban",
		Short: "divban drives rootless container services through systemd Quadlet units",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.New()
			if configPath != "" {
				v.SetConfigFile(configPath)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config %s: %w", configPath, err)
				}
			}

			app, err := NewApp(verbose, userMode, v)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appContextKey, app))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, ok := cmd.Context().Value(appContextKey).(*App); ok {
				_ = app.Close()
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&userMode, "user", "u", true, "operate against the user systemd instance rather than the system one")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file overlaying the engine defaults")

	root.AddCommand(newStatusCommand(), newProvisionCommand(), newRemoveCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
