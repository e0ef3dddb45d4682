package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/storekit/internal"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Display every object in a file",
	Long:  "Load and display every certificate, key, CRL, or parameter set a file contains, whether PEM, DER, PKCS#12, PKCS#7, or JKS.",
	Example: `  storekit inspect cert.pem
  storekit inspect bundle.p12 -p changeit
  storekit inspect file:///etc/ssl/certs/ca.pem --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")
}

func runInspect(cmd *cobra.Command, args []string) error {
	pass, err := passphraseSource()
	if err != nil {
		return err
	}

	objects, err := internal.LoadAll(args[0], pass)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("no loadable objects in %s", args[0])
	}

	summaries := make([]internal.Summary, 0, len(objects))
	for _, info := range objects {
		summaries = append(summaries, internal.Summarize(info))
	}
	output, err := internal.FormatSummaries(summaries, inspectFormat)
	if err != nil {
		return err
	}
	fmt.Print(output)
	return nil
}
