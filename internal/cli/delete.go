package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <product> <version>",
	Short: "Delete a release and its features",
	Long: `Deletes a release together with all of its features.
Requires admin credentials.

Example:
  srelease-cli delete lam 1.2.0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		product, version := args[0], args[1]
		if err := client.DeleteRelease(cmd.Context(), product, version); err != nil {
			return fmt.Errorf("delete %s %s: %w", product, version, err)
		}
		GetLogger().Debug("Release deleted", zap.String("product", product), zap.String("version", version))
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", product, version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
