package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dreamware/changelogd/internal/config"
)

// Flags shared by the client-side commands.
const (
	flagServer = "server"
	flagConfig = "config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "changelogd",
		Short: "Versioned plain-text artifact store",
		Long: `changelogd stores plain-text artifacts per module and version and serves
the latest one, where "latest" follows Maven-style version ordering
(1.0-alpha < 1.0-rc1 < 1.0 < 1.0.1).`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String(flagConfig, "", "config file (yaml, json or toml)")

	root.AddCommand(
		newServeCmd(),
		newGetCmd(),
		newPushCmd(),
		newVersionsCmd(),
	)
	return root
}

// lookup resolves key from its flag, falling back to the matching
// CHANGELOGD_* environment variable.
func lookup(fs *pflag.FlagSet, key string) (string, error) {
	flag := fs.Lookup(key)
	if flag == nil {
		return "", fmt.Errorf("no flag %q", key)
	}

	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlag(key, flag); err != nil {
		return "", fmt.Errorf("bind %s: %w", key, err)
	}
	return v.GetString(key), nil
}
