package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tellerlink",
		Short: "Dual-screen teller/tablet session sync client",
	}
	root.PersistentFlags().String("config", "", "path to YAML config file")
	root.PersistentFlags().String("session", "", "explicit session id (wins over persisted value)")

	root.AddCommand(newEmployeeCmd(), newTabletCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
