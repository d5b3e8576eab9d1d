// dgbctl is the offline companion to the DGB server: it runs the same batch
// compression engine against a local folder, for laptops in the depot with
// no network access.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dgbctl",
	Short: "dgbctl - batch-compress museum images to a target file size",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
