package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <image>",
	Short: "Upload an image for use in feature content",
	Long: `Uploads a PNG, JPEG, GIF or WebP image and prints the URL to reference
it with from feature content, e.g. <img src="/uploads/...">.
Requires admin credentials.

Example:
  srelease-cli upload ./screenshot.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()

		url, err := client.UploadImage(cmd.Context(), f.Name(), f)
		if err != nil {
			return fmt.Errorf("upload %s: %w", args[0], err)
		}
		GetLogger().Debug("Image uploaded", zap.String("file", args[0]), zap.String("url", url))
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
