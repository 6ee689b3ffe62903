package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [class]",
		Short: "List the classes of the WFS schema or describe one of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := wfs.Schema()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				for _, c := range p.Classes {
					abstract := ""
					if c.Abstract {
						abstract = "abstract"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Element.Local, abstract)
				}
				return nil
			}

			c := p.ClassByName(args[0])
			if c == nil {
				return fmt.Errorf("%w: %s", wfs.ErrInvalidClassifier, args[0])
			}

			color.New(color.Bold).Fprintf(w, "%s", c.Name)
			if c.Super != nil {
				fmt.Fprintf(w, " extends %s", c.Super.Name)
			} else if c.SuperName != "" {
				fmt.Fprintf(w, " extends %s", c.SuperName)
			}
			fmt.Fprintln(w)

			for _, f := range c.AllFeatures() {
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", f.Name, f.Kind, f.Type, cardinality(f), f.Default)
			}
			return nil
		},
	}
}

func cardinality(f *wfs.Feature) string {
	upper := "*"
	if f.Upper != wfs.Unbounded {
		upper = strconv.Itoa(f.Upper)
	}
	return strconv.Itoa(f.Lower) + ".." + upper
}
