// Package summary implements the summary command which reports quinolone
// resistance prevalence and determinants across isolates.
package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campy-amr/tools/cmd/campy-amr/quinolone"
	"github.com/campy-amr/tools/cmd/campy-amr/table"
)

var Cmd = &cobra.Command{
	Use: "summary <table>",

	Short: "Summarizes quinolone resistance across isolates.",

	Long: `Reads an AbritAMR, extracted or merged quinolone table and reports the number
of resistant isolates and how often each gene or point mutation occurs. An
isolate is resistant when any of its quinolone columns is non-empty.

With --markdown the report is printed as Markdown. With --post it is created
as an issue in the GitHub repository given by --repo.`,

	Example: `  campy-amr summary quinolone_master.txt
  campy-amr summary --markdown quinolone_master.txt > report.md
  campy-amr summary --post --repo my-lab/campy-surveillance --token=abc123 quinolone_master.txt`,

	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			cmd.Usage()
			os.Exit(1)
		}

		post := viper.GetBool("summary.post")
		markdown := viper.GetBool("summary.markdown")

		t, err := table.ReadFile(args[0])
		if err != nil {
			cmd.Printf("Error reading '%s': %s\n", args[0], err)
			os.Exit(1)
		}

		s, err := quinolone.Summarize(t)
		if err != nil {
			cmd.Printf("Error: %s in '%s'.\n", err, args[0])
			os.Exit(1)
		}

		if post {
			ctx := context.Background()

			p, err := NewPublisher(ctx, viper.GetString("summary.repo"), viper.GetString("summary.token"))
			if err != nil {
				cmd.Println(err)
				os.Exit(1)
			}

			title := viper.GetString("summary.title")
			if title == "" {
				title = fmt.Sprintf("Quinolone resistance: %s", filepath.Base(args[0]))
			}

			ir, err := BuildIssue(title, s)
			if err != nil {
				cmd.Printf("Error building summary issue: %s\n", err)
				os.Exit(1)
			}

			issue, err := p.Post(ctx, ir)
			if err != nil {
				cmd.Printf("Error posting summary issue to GitHub: %s\n", err)
				os.Exit(1)
			}

			cmd.Printf("Summary issue URL: %s\n", issue.GetHTMLURL())
			return
		}

		if markdown {
			if err := s.Markdown(cmd.OutOrStdout()); err != nil {
				cmd.Printf("Error rendering report: %s\n", err)
				os.Exit(1)
			}
			return
		}

		printSummary(cmd, s, viper.GetBool("summary.isolates"))
	},
}

func printSummary(cmd *cobra.Command, s *quinolone.Summary, isolates bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Columns: %s\n", strings.Join(s.Columns, ", "))
	fmt.Fprintf(w, "%d of %d isolates resistant (%.1f%%)\n\n", s.Resistant(), s.Total(), s.Prevalence())

	if len(s.Determinants) == 0 {
		fmt.Fprintln(w, "No quinolone resistance determinants found.")
		return
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"determinant", "isolates", "share"})

	for _, d := range s.Determinants {
		tw.Append([]string{
			d.Name,
			strconv.Itoa(d.Isolates),
			fmt.Sprintf("%.1f%%", s.Share(d)),
		})
	}

	tw.Render()

	if !isolates {
		return
	}

	resistant := color.New(color.Bold, color.FgRed).SprintFunc()

	tw = tablewriter.NewWriter(w)
	tw.SetHeader([]string{"isolate", "resistant", "determinants"})

	for _, i := range s.Isolates {
		status := "No"
		if i.Resistant() {
			status = resistant("Yes")
		}

		tw.Append([]string{i.Name, status, strings.Join(i.Determinants, ", ")})
	}

	fmt.Fprintln(w)
	tw.Render()
}

func init() {
	flags := Cmd.Flags()

	flags.Bool("isolates", false, "Also list every isolate and its determinants.")
	flags.Bool("markdown", false, "Print the report as Markdown.")
	flags.Bool("post", false, "Posts the report to GitHub as an issue.")
	flags.String("repo", "", "GitHub repository to post to, as owner/name.")
	flags.String("token", "", "Token used to authenticate with GitHub.")
	flags.String("title", "", "Title of the GitHub issue.")

	viper.BindPFlag("summary.isolates", flags.Lookup("isolates"))
	viper.BindPFlag("summary.markdown", flags.Lookup("markdown"))
	viper.BindPFlag("summary.post", flags.Lookup("post"))
	viper.BindPFlag("summary.repo", flags.Lookup("repo"))
	viper.BindPFlag("summary.token", flags.Lookup("token"))
	viper.BindPFlag("summary.title", flags.Lookup("title"))
}
