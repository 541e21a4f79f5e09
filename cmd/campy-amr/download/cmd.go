// Package download implements the download-genomes command which fetches
// genome assemblies from NCBI by accession.
package download

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campy-amr/tools/cmd/campy-amr/entrez"
)

var Cmd = &cobra.Command{
	Use: "download-genomes -i <accessions> -o <dir>",

	Short: "Downloads genome sequences from NCBI by assembly accession.",

	Long: `Each accession in the input file (one per line) is looked up in the NCBI
Assembly database and its genomic FASTA is saved as <accession>.fna.gz in the
output directory. Failed accessions are reported at the end and do not stop
the remaining downloads.

NCBI requires an e-mail address to identify users. It can be set with --email,
in the config file under download.email or with CAMPY_AMR_DOWNLOAD_EMAIL.`,

	Example: `  campy-amr download-genomes -i accessions.txt -o genomes --email me@example.org`,

	Run: func(cmd *cobra.Command, args []string) {
		input := viper.GetString("download.input")
		outDir := viper.GetString("download.output")
		email := viper.GetString("download.email")

		if input == "" || outDir == "" {
			cmd.Usage()
			os.Exit(1)
		}

		if email == "" {
			cmd.Println("An e-mail address is required by NCBI. Specify using the --email option.")
			os.Exit(1)
		}

		f, err := os.Open(input)
		if err != nil {
			cmd.Printf("Error opening accession list: %s\n", err)
			os.Exit(1)
		}

		accessions, err := ReadAccessions(f)
		f.Close()
		if err != nil {
			cmd.Printf("Error reading accession list: %s\n", err)
			os.Exit(1)
		}

		if len(accessions) == 0 {
			cmd.Println("No accessions found in the input file.")
			return
		}

		client := entrez.NewClient(
			entrez.WithBaseURL(viper.GetString("download.url")),
			entrez.WithEmail(email),
			entrez.WithAPIKey(viper.GetString("download.api-key")),
		)

		results, err := Genomes(context.Background(), client, accessions, Options{
			OutDir: outDir,
			Jobs:   viper.GetInt("download.jobs"),
			Force:  viper.GetBool("download.force"),
		})
		if err != nil {
			cmd.Println(err)
			os.Exit(1)
		}

		var failed int

		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.SetHeader([]string{"accession", "status", "size", "detail"})

		for _, r := range results {
			switch {
			case r.Err != nil:
				failed++
				tw.Append([]string{r.Accession, "failed", "", r.Err.Error()})
			case r.Skipped:
				tw.Append([]string{r.Accession, "skipped", "", r.Path})
			default:
				tw.Append([]string{r.Accession, "downloaded", humanize.Bytes(uint64(r.Bytes)), r.URL})
			}
		}

		tw.Render()

		cmd.Printf("%d of %d genomes available in '%s'\n", len(results)-failed, len(results), outDir)

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	flags := Cmd.Flags()

	flags.StringP("input", "i", "", "File containing genome assembly accession numbers (one per line).")
	flags.StringP("output", "o", "", "Directory to save the downloaded genome files.")
	flags.String("email", "", "E-mail address sent to NCBI with each request.")
	flags.String("api-key", "", "NCBI API key. Raises the request limit from 3 to 10 per second.")
	flags.Int("jobs", 2, "Number of genomes to download concurrently.")
	flags.Bool("force", false, "Download genomes even if the output file exists.")
	flags.String("url", entrez.DefaultBaseURL, "NCBI E-utilities URL.")

	viper.BindPFlag("download.input", flags.Lookup("input"))
	viper.BindPFlag("download.output", flags.Lookup("output"))
	viper.BindPFlag("download.email", flags.Lookup("email"))
	viper.BindPFlag("download.api-key", flags.Lookup("api-key"))
	viper.BindPFlag("download.jobs", flags.Lookup("jobs"))
	viper.BindPFlag("download.force", flags.Lookup("force"))
	viper.BindPFlag("download.url", flags.Lookup("url"))
}
