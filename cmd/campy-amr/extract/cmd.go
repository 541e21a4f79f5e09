// Package extract implements the extract-quinolone command.
package extract

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campy-amr/tools/cmd/campy-amr/quinolone"
	"github.com/campy-amr/tools/cmd/campy-amr/table"
)

var Cmd = &cobra.Command{
	Use: "extract-quinolone -i <abritamr results> -o <output>",

	Short: "Extracts quinolone resistance columns from AbritAMR results.",

	Long: `Selects the Isolate column and every column whose name contains "Quinolone"
(case-insensitive, so fluoroquinolone columns are included) from a
tab-delimited AbritAMR result file. The first row must be the header.

Empty cells in the quinolone columns indicate no resistance. Non-empty cells
hold the genes or mutations responsible for resistance.`,

	Example: `  campy-amr extract-quinolone -i abritamr_results/abritamr.txt -o quinolone_results.txt`,

	Run: func(cmd *cobra.Command, args []string) {
		input := viper.GetString("extract.input")
		output := viper.GetString("extract.output")

		if input == "" || output == "" {
			cmd.Usage()
			os.Exit(1)
		}

		cmd.Printf("Loading data from '%s'\n", input)

		t, err := table.ReadFile(input)
		if err != nil {
			cmd.Printf("Error reading '%s': %s\n", input, err)
			os.Exit(1)
		}

		out, err := quinolone.Extract(t)
		if err != nil {
			cmd.Printf("Error: %s in '%s'.\n", err, input)
			os.Exit(1)
		}

		if err := out.WriteFile(output); err != nil {
			cmd.Printf("Error writing '%s': %s\n", output, err)
			os.Exit(1)
		}

		cmd.Printf("Saved %d isolates and %d quinolone columns to '%s'\n", out.Len(), len(out.Header)-1, output)
	},
}

func init() {
	flags := Cmd.Flags()

	flags.StringP("input", "i", "", "Path to the AbritAMR result file (tab-delimited).")
	flags.StringP("output", "o", "", "Path to the output file for extracted data.")

	viper.BindPFlag("extract.input", flags.Lookup("input"))
	viper.BindPFlag("extract.output", flags.Lookup("output"))
}
