package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanjuz-cas/SURF/internal/ingest"
	"github.com/sanjuz-cas/SURF/internal/store"
)

func newIngestCmd() *cobra.Command {
	var sample bool
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Load raw feedback from JSON, text, or PDF files into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sample && len(args) == 0 {
				return fmt.Errorf("no input files; pass files or use --sample")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			total := 0
			if sample {
				n, err := ingest.Import(cmd.Context(), st, ingest.SampleRecords())
				total += n
				if err != nil {
					return err
				}
			}
			for _, path := range args {
				records, err := ingest.File(path)
				if err != nil {
					return err
				}
				n, err := ingest.Import(cmd.Context(), st, records)
				total += n
				if err != nil {
					return err
				}
			}
			fmt.Printf("ingested %d feedback items into %s\n", total, cfg.DBPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "insert the built-in sample feedback set")
	return cmd
}
