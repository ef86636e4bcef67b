package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pdfOutput string

func init() {
	pdfCmd.Flags().StringVarP(&pdfOutput, "output", "o", "", "File to write the PDF to, defaults to the order's own file name.")
	rootCmd.AddCommand(pdfCmd)
}

var pdfCmd = &cobra.Command{
	Use:   "pdf <reference>",
	Short: "Downloads an interim order given the reference from its displayPdf(...) link.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scraper, err := newScraper()
		if err != nil {
			return err
		}
		doc, err := scraper.Orders.Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := pdfOutput
		if out == "" {
			out = doc.Filename
		}
		err = os.WriteFile(out, doc.Data, 0644)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes to %s\n", len(doc.Data), out)
		return nil
	},
}
