package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/webriots/flatten/traverse"
)

// CompareCmd flattens with every realization and tabulates the results.
func CompareCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "compare [literal | -]",
		Short: "Flatten with every realization and compare the results",
		Long: `This subcommand flattens the literal with each realization and
prints a table of the sequences they produced against the reference
flattening. It fails if any realization disagrees.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			root, err := readTree(cmd, args, cfg)
			if err != nil {
				return err
			}
			want := root.Flatten()

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Realization", "Leaves", "Sequence", "Status"})
			table.SetAutoWrapText(false)

			failed := 0
			for _, k := range traverse.Kinds() {
				it, err := traverse.New(k, root)
				if err != nil {
					return err
				}

				got, err := traverse.Collect(it)
				status := color.GreenString("ok")
				switch {
				case err != nil:
					status = color.RedString(err.Error())
					failed++
				case !slices.Equal(got, want):
					status = color.RedString("mismatch")
					failed++
				}
				table.Append([]string{k.String(), strconv.Itoa(len(got)), strings.Join(got, " "), status})
			}
			table.SetFooter([]string{"reference", strconv.Itoa(len(want)), strings.Join(want, " "), ""})
			table.Render()

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errMismatch, failed, len(traverse.Kinds()))
			}
			return nil
		},
	}
}
