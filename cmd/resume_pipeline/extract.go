package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-pipeline/internal/ingestion"
)

var extractMeta bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the cleaned text of a resume file",
	Long: `Run the text extraction used by the process-document function on a
local PDF, DOCX, HTML or text file. No services are needed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, meta, err := ingestion.IngestFromFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if extractMeta {
			b, err := meta.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractMeta, "meta", false, "Print extraction metadata as JSON instead of the text")
	rootCmd.AddCommand(extractCmd)
}
