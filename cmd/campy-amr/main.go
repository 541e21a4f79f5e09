package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/campy-amr/tools/cmd/campy-amr/download"
	"github.com/campy-amr/tools/cmd/campy-amr/extract"
	"github.com/campy-amr/tools/cmd/campy-amr/logging"
	"github.com/campy-amr/tools/cmd/campy-amr/merge"
	"github.com/campy-amr/tools/cmd/campy-amr/pipeline"
	"github.com/campy-amr/tools/cmd/campy-amr/summary"
)

var mainCmd = &cobra.Command{
	Use: "campy-amr",

	Short: "Commands for genome acquisition and quinolone resistance analysis of Campylobacter isolates.",

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}

		l, err := logging.Initialize(verbosity())
		if err != nil {
			return err
		}

		logging.Use(l)

		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use: "version",

	Short: "Prints the version of the program.",

	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "%s\n", progVersion)
	},
}

func main() {
	pipeline.Version = progVersion.String()

	mainCmd.AddCommand(versionCmd)
	mainCmd.AddCommand(download.Cmd)
	mainCmd.AddCommand(pipeline.Cmd)
	mainCmd.AddCommand(extract.Cmd)
	mainCmd.AddCommand(merge.Cmd)
	mainCmd.AddCommand(summary.Cmd)
	mainCmd.AddCommand(queryCmd)
	mainCmd.AddCommand(validateCmd)

	err := mainCmd.Execute()

	logging.L.Sync()

	if err != nil {
		os.Exit(1)
	}
}
