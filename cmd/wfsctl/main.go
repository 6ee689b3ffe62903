package main

import (
	"errors"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

var ErrInvalidDocument = errors.New("document is not valid")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "wfsctl",
		Short:        "Inspect and build WFS 1.1 documents",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		newDecodeCmd(),
		newValidateCmd(),
		newSchemaCmd(),
		newKVPCmd(),
		newLockCmd(),
	)
	return rootCmd
}

// readDocument decodes the file named by args, or stdin when there is none.
func readDocument(cmd *cobra.Command, args []string) (*wfs.Document, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return wfs.Decode(r)
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a WFS document and write it back in canonical form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			return wfs.Encode(cmd.OutOrStdout(), doc)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a WFS document against the schema cardinalities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			err = wfs.Validate(doc)

			var errs wfs.ValidationErrors
			if errors.As(err, &errs) {
				red := color.New(color.FgRed)
				for _, e := range errs {
					red.Fprintf(out, "%s", e.Path)
					color.New(color.Reset).Fprintf(out, ": %s\n", e.Message)
				}
				return ErrInvalidDocument
			}
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(out, "%s is valid\n", doc.Name.Local)
			return nil
		},
	}
}
