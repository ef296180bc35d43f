package main

import (
	"fmt"

	"kiosk-lottery/internal/middleware"

	"github.com/spf13/cobra"
)

func newPinCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Operator PIN helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "hash <pin>",
		Short: "Print the bcrypt hash to set as Operator.PINHash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashPIN(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})
	return cmd
}
