// counterctl is the operator CLI for counter storage. It opens the
// configured backend directly, bypassing the write-back cache, so values
// read or written here are the durable ones.
package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	servercmd "github.com/louisbranch/moecount/internal/cmd/server"
	entrypoint "github.com/louisbranch/moecount/internal/platform/cmd"
	"github.com/louisbranch/moecount/internal/platform/config"
	"github.com/louisbranch/moecount/internal/storage"
	"github.com/louisbranch/moecount/internal/storage/factory"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		config.Exitf("counterctl: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           entrypoint.ServiceCtl,
		Short:         "Inspect and edit durable counter values",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newGetCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newIncrCmd())
	root.AddCommand(newListCmd())
	return root
}

// openStore builds the backend from the same environment the server reads.
func openStore() (storage.Store, error) {
	fs := flag.NewFlagSet(entrypoint.ServiceCtl, flag.ContinueOnError)
	cfg, err := servercmd.ParseConfig(fs, nil)
	if err != nil {
		return nil, err
	}
	return factory.Open(cfg.StorageConfig())
}

func withStore(run func(store storage.Store, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return run(store, cmd, args)
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print the durable count for one counter",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(store storage.Store, cmd *cobra.Command, args []string) error {
			record, err := store.GetNum(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", record.Name, record.Count)
			return nil
		}),
	}
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <count>",
		Short: "Upsert one counter to an absolute count",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(store storage.Store, cmd *cobra.Command, args []string) error {
			count, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parse count %q: %w", args[1], err)
			}
			return store.SetNum(cmd.Context(), args[0], count)
		}),
	}
}

func newIncrCmd() *cobra.Command {
	var delta uint64
	cmd := &cobra.Command{
		Use:   "incr <name>",
		Short: "Atomically add to one counter and print the new count",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(store storage.Store, cmd *cobra.Command, args []string) error {
			count, err := store.Increment(cmd.Context(), args[0], delta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", args[0], count)
			return nil
		}),
	}
	cmd.Flags().Uint64Var(&delta, "delta", 1, "Amount to add")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every durable counter",
		Args:  cobra.NoArgs,
		RunE: withStore(func(store storage.Store, cmd *cobra.Command, args []string) error {
			records, err := store.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", record.Name, record.Count)
			}
			return nil
		}),
	}
}
