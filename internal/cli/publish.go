package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var publishReplace bool

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <release.yaml>",
	Short: "Publish a release from a YAML file",
	Long: `Reads a release file and publishes it as a new release. With --replace the
existing release of that version is overwritten: its date is updated and its
features are replaced by the ones in the file.

Requires admin credentials.

Example release file:
  product: lam
  version: 1.2.0
  date: 2024-03-01
  features:
    - title: Faster sync
      content: <p>Sync is now <strong>twice</strong> as fast.</p>

Example:
  srelease-cli publish ./release.yaml
  srelease-cli publish ./release.yaml --replace`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := GetLogger()
		file, err := LoadReleaseFile(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if publishReplace {
			if err := client.UpdateRelease(cmd.Context(), file.Product, file.Version, file.UpdateRequest()); err != nil {
				return fmt.Errorf("replace %s %s: %w", file.Product, file.Version, err)
			}
			log.Debug("Release replaced", zap.String("product", file.Product), zap.String("version", file.Version))
			fmt.Fprintf(out, "Replaced %s %s (%s)\n", file.Product, file.Version, plural(len(file.Features), "feature"))
			return nil
		}

		resp, err := client.CreateRelease(cmd.Context(), file.CreateRequest())
		if err != nil {
			return fmt.Errorf("publish %s %s: %w", file.Product, file.Version, err)
		}
		log.Debug("Release published", zap.Uint("release_id", resp.ReleaseID))
		fmt.Fprintf(out, "Published %s %s (%s, release id %d)\n", file.Product, file.Version, plural(len(file.Features), "feature"), resp.ReleaseID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().BoolVar(&publishReplace, "replace", false, "Replace an existing release instead of creating one")
}
