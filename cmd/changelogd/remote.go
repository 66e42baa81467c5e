package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dreamware/changelogd/internal/client"
	"github.com/dreamware/changelogd/internal/config"
	"github.com/dreamware/changelogd/internal/storage"
)

const defaultServer = "http://localhost:8080"

func bindServerFlag(fs *pflag.FlagSet) {
	fs.String(flagServer, defaultServer, "base URL of the changelogd server")
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get MODULE [VERSION]",
		Short: "Print the latest or a specific version of a module",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := lookup(cmd.Flags(), flagServer)
			if err != nil {
				return err
			}
			c := client.New(base, "")

			var content []byte
			if len(args) == 2 {
				content, err = c.Get(cmd.Context(), args[0], args[1])
			} else {
				content, err = c.Latest(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}
	bindServerFlag(cmd.Flags())
	return cmd
}

func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push MODULE VERSION [FILE]",
		Short: "Publish a version, reading FILE or standard input",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := lookup(cmd.Flags(), flagServer)
			if err != nil {
				return err
			}
			key, err := lookup(cmd.Flags(), config.KeySecret)
			if err != nil {
				return err
			}

			var content []byte
			if len(args) == 3 && args[2] != "-" {
				content, err = os.ReadFile(args[2])
			} else {
				content, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}

			if err := client.New(base, key).Put(cmd.Context(), args[0], args[1], content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s %s\n", args[0], args[1])
			return nil
		},
	}
	bindServerFlag(cmd.Flags())
	cmd.Flags().StringP(config.KeySecret, "s", "", "the secret key required to publish versions")
	return cmd
}

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions MODULE",
		Short: "List the versions of a module in a local data directory, lowest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := lookup(cmd.Flags(), config.KeyDirectory)
			if err != nil {
				return err
			}
			if dir == "" {
				return fmt.Errorf("%s is required", config.KeyDirectory)
			}

			versions, err := storage.NewFileStore(dir).Versions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range versions {
				fmt.Fprintln(out, v)
			}
			return nil
		},
	}
	cmd.Flags().StringP(config.KeyDirectory, "d", "", "the folder data is stored in")
	return cmd
}
