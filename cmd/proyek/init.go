package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and its JSONL files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			if err := backend.Detach(); err != nil {
				return sysError(fmt.Errorf("detach backend: %w", err))
			}
			if a.flagJSON {
				return a.printJSON(map[string]string{"status": "initialized"})
			}
			fmt.Fprintln(a.out, "proyek data directory initialized")
			return nil
		},
	}
}
