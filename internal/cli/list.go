package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [product]",
	Short: "List products or the releases of a product",
	Long: `Lists all products on the server, or the releases of one product ordered
by version, newest first.

Examples:
  srelease-cli list          # List all products
  srelease-cli list lam      # List releases of the lam product`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			products, err := client.ListProducts(cmd.Context())
			if err != nil {
				return fmt.Errorf("list products: %w", err)
			}
			printProducts(out, products)
			return nil
		}

		result, err := client.ListReleases(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list releases of %s: %w", args[0], err)
		}
		if len(result.Releases) == 0 {
			fmt.Fprintf(out, "No releases found for %s.\n", result.Product.Name)
			return nil
		}
		sortVersionsDesc(result.Releases)
		fmt.Fprintf(out, "Releases for %s (%s):\n", result.Product.Name, result.Product.Slug)
		for _, r := range result.Releases {
			fmt.Fprintf(out, "  %-10s %s  %s\n", r.Version, r.ReleaseDate, plural(len(r.Features), "feature"))
		}
		return nil
	},
}

func printProducts(out io.Writer, products []models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, "No products found.")
		return
	}
	fmt.Fprintln(out, "Products:")
	for _, p := range products {
		fmt.Fprintf(out, "  %-12s %s\n", p.Slug, p.Name)
	}
}

// sortVersionsDesc orders releases by semantic version, newest first.
// Unparseable versions sort after the rest, by string.
func sortVersionsDesc(rs []models.Release) {
	parsed := make(map[string]*semver.Version, len(rs))
	for _, r := range rs {
		if v, err := semver.NewVersion(r.Version); err == nil {
			parsed[r.Version] = v
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		vi, iok := parsed[rs[i].Version]
		vj, jok := parsed[rs[j].Version]
		switch {
		case iok && jok:
			return vi.GreaterThan(vj)
		case iok != jok:
			return iok
		default:
			return rs[i].Version > rs[j].Version
		}
	})
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func init() {
	rootCmd.AddCommand(listCmd)
}
