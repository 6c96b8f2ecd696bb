package cli

import (
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/spf13/cobra"

	rssopinion "github.com/samvad-hq/rss-opinion"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the RSSOpinion HTTP function locally",
	Long:  "Starts the Functions Framework server. Every request to the function runs one full invocation.",
	RunE:  serveAction,
}

func init() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serveCmd.Flags().StringVar(&serveHost, "host", "", "interface to listen on")
	serveCmd.Flags().StringVar(&servePort, "port", port, "port to listen on (defaults to $PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func serveAction(_ *cobra.Command, _ []string) error {
	if os.Getenv("FUNCTION_TARGET") == "" {
		if err := os.Setenv("FUNCTION_TARGET", rssopinion.FunctionName); err != nil {
			return err
		}
	}
	return funcframework.StartHostPort(serveHost, servePort)
}
