package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Suhaibinator/SRelease/internal/releases"
	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <product> <version>",
	Short: "Show a release and its features",
	Long: `Fetches a single release and prints its features. Feature content is
rendered as plain text.

Example:
  srelease-cli show lam 1.2.0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		detail, err := client.GetRelease(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("show %s %s: %w", args[0], args[1], err)
		}
		printRelease(cmd.OutOrStdout(), detail)
		return nil
	},
}

func printRelease(out io.Writer, d *releases.ReleaseDetail) {
	fmt.Fprintf(out, "%s %s (%s)\n", d.Product.Name, d.Release.Version, d.Release.ReleaseDate)
	if len(d.Release.Features) == 0 {
		fmt.Fprintln(out, "\nNo features listed.")
		return
	}
	for _, f := range d.Release.Features {
		fmt.Fprintf(out, "\n- %s\n", f.Title)
		if f.Content == nil {
			continue
		}
		for _, line := range strings.Split(text.PlainText(*f.Content), "\n") {
			if line != "" {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
