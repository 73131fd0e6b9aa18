// Command surf runs the customer feedback prioritization pipeline: five
// agents executed strictly in sequence over a shared feedback store, with
// Slack delivery and a REST read surface for the dashboard.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanjuz-cas/SURF/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "surf",
		Short:         "Customer feedback prioritization pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to surf.yaml")

	root.AddCommand(newRunCmd(), newServeCmd(), newIngestCmd())

	if err := root.Execute(); err != nil {
		log.Printf("surf: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
