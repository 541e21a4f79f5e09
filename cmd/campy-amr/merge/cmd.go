// Package merge implements the merge-quinolone command.
package merge

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campy-amr/tools/cmd/campy-amr/logging"
	"github.com/campy-amr/tools/cmd/campy-amr/quinolone"
)

var Cmd = &cobra.Command{
	Use: "merge-quinolone -i <dir> -o <output>",

	Short: "Merges quinolone result files into a single master file.",

	Long: `Every .txt file in the input directory is read as a tab-delimited table and
the rows are stacked into one file. The master file holds the union of all
columns; cells for columns a file does not have are left empty.

Files that cannot be read are reported and skipped.`,

	Example: `  campy-amr merge-quinolone -i quinolone_results -o quinolone_master.txt`,

	Run: func(cmd *cobra.Command, args []string) {
		input := viper.GetString("merge.input")
		output := viper.GetString("merge.output")

		if input == "" || output == "" {
			cmd.Usage()
			os.Exit(1)
		}

		if stat, err := os.Stat(input); err != nil || !stat.IsDir() {
			cmd.Printf("Error: directory '%s' not found.\n", input)
			os.Exit(1)
		}

		merged, errs, err := quinolone.Merge(input)
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}

		for _, e := range errs {
			logging.S.Warnw("skipping file", "path", e.Path, "error", e.Err)
			cmd.Printf("Error processing file '%s': %s\n", e.Path, e.Err)
		}

		if err := merged.WriteFile(output); err != nil {
			cmd.Printf("Error writing '%s': %s\n", output, err)
			os.Exit(1)
		}

		cmd.Printf("Merged %d rows into '%s'\n", merged.Len(), output)
	},
}

func init() {
	flags := Cmd.Flags()

	flags.StringP("input", "i", "", "Directory containing quinolone result files.")
	flags.StringP("output", "o", "", "Path to the merged output file.")

	viper.BindPFlag("merge.input", flags.Lookup("input"))
	viper.BindPFlag("merge.output", flags.Lookup("output"))
}
