// Package pipeline implements the run command: genome decompression,
// optional Prokka annotation and AMR prediction with AbritAMR.
package pipeline

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campy-amr/tools/cmd/campy-amr/abritamr"
	"github.com/campy-amr/tools/cmd/campy-amr/prokka"
	"github.com/campy-amr/tools/cmd/campy-amr/runner"
)

// Version is set by the main package and recorded in run manifests.
var Version string

var Cmd = &cobra.Command{
	Use: "run -i <genomes> -o <dir> -s <species>",

	Short: "Runs genome annotation and AMR prediction over a directory of genomes.",

	Long: `The pipeline takes a directory of genome assemblies in .fna or .fna.gz format
and runs the following steps:

  1. Decompress .gz files in place.
  2. Annotate each genome with Prokka (only with --annotate).
  3. Write a sample sheet of all .fna files to <output>/sample_sheet.txt.
  4. Run AbritAMR over the sample sheet and move its summaries to
     <output>/abritamr_results.

A description of the run, including the status of each step, is written to
<output>/run.json.`,

	Example: `  campy-amr run -i genomes -o results -s Campylobacter -t 8
  campy-amr run -i genomes -o results -s Campylobacter --annotate --kingdom Bacteria`,

	Run: func(cmd *cobra.Command, args []string) {
		opts := Options{
			InputDir:  viper.GetString("run.input"),
			OutputDir: viper.GetString("run.output"),
			WorkDir:   viper.GetString("run.workdir"),
			Threads:   viper.GetInt("run.threads"),
			Jobs:      viper.GetInt("run.jobs"),
			Kingdom:   viper.GetString("run.kingdom"),
			Species:   viper.GetString("run.species"),
			Annotate:  viper.GetBool("run.annotate"),
			AddGenes:  viper.GetBool("run.addgenes"),
		}

		if err := opts.Validate(); err != nil {
			cmd.Println(err)
			cmd.Usage()
			os.Exit(1)
		}

		if err := runner.LookPath(opts.Tools()...); err != nil {
			cmd.Println(err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		m, err := New(runner.Exec{}, Version, opts).Run(ctx)

		if m != nil {
			for _, s := range m.Steps {
				cmd.Printf("%-14s %s\n", s.Name, s.Status)
			}

			if len(m.Results) > 0 {
				cmd.Printf("Results written to:\n  %s\n", strings.Join(m.Results, "\n  "))
			}
		}

		if err != nil {
			cmd.Printf("Pipeline failed: %s\n", err)
			stop()
			os.Exit(1)
		}
	},
}

func init() {
	flags := Cmd.Flags()

	flags.StringP("input", "i", "", "Directory containing genome files in .fna or .fna.gz format.")
	flags.StringP("output", "o", "", "Directory where output files will be saved.")
	flags.String("workdir", "", "Directory AbritAMR runs in. Defaults to the output directory.")
	flags.IntP("threads", "t", 4, "Number of threads to use.")
	flags.Int("jobs", 1, "Number of genomes annotated concurrently.")
	flags.StringP("kingdom", "k", "Bacteria", "Kingdom for Prokka annotation: "+strings.Join(prokka.Kingdoms, ", ")+".")
	flags.StringP("species", "s", "", "Species for AbritAMR point mutation analysis: "+strings.Join(abritamr.Species, ", ")+".")
	flags.Bool("annotate", false, "Annotate genomes with Prokka before AMR prediction.")
	flags.Bool("addgenes", false, "Pass --addgenes to Prokka.")

	viper.BindPFlag("run.input", flags.Lookup("input"))
	viper.BindPFlag("run.output", flags.Lookup("output"))
	viper.BindPFlag("run.workdir", flags.Lookup("workdir"))
	viper.BindPFlag("run.threads", flags.Lookup("threads"))
	viper.BindPFlag("run.jobs", flags.Lookup("jobs"))
	viper.BindPFlag("run.kingdom", flags.Lookup("kingdom"))
	viper.BindPFlag("run.species", flags.Lookup("species"))
	viper.BindPFlag("run.annotate", flags.Lookup("annotate"))
	viper.BindPFlag("run.addgenes", flags.Lookup("addgenes"))
}
