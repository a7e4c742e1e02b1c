package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/kibanahunt/internal/errors"
	"github.com/anstrom/kibanahunt/internal/targets"
)

// rangesCmd previews what a scan would enumerate.
var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Show host counts and overlaps for ranges without probing",
	Long: `Parse the configured ranges and print, per range, the first host and
the number of host addresses a scan would probe. Overlapping ranges are listed
because their shared addresses are probed once per occurrence.`,
	Example: `  kibanahunt ranges --range 10.0.0.0/8
  kibanahunt ranges --range 10.0.0.0/24 --range 10.0.0.128/25`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd.Flags(), map[string]string{"range": "scan.ranges"})
	},
	RunE: runRanges,
}

func init() {
	rootCmd.AddCommand(rangesCmd)
	addRangeFlag(rangesCmd.Flags())
}

func runRanges(cmd *cobra.Command, _ []string) error {
	cfg, err := decodeConfig()
	if err != nil {
		return err
	}
	if len(cfg.Scan.Ranges) == 0 {
		return errors.ErrConfigMissing("scan.ranges")
	}

	ranges, err := targets.ParseRanges(cfg.Scan.Ranges)
	if err != nil {
		return err
	}
	overlaps, err := targets.Overlaps(ranges)
	if err != nil {
		return err
	}

	return printRanges(cmd.OutOrStdout(), ranges, overlaps)
}

func printRanges(out io.Writer, ranges []targets.Range, overlaps []targets.Overlap) error {
	table := tablewriter.NewWriter(out)
	table.Header("Range", "Family", "First Host", "Hosts")

	for _, r := range ranges {
		family := "IPv6"
		if r.IsIPv4() {
			family = "IPv4"
		}
		first := "-"
		if r.Count() > 0 {
			first = r.First().String()
		}
		_ = table.Append([]string{
			r.String(),
			family,
			first,
			strconv.FormatUint(r.Count(), 10),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Total hosts: %d\n", targets.TotalHosts(ranges))
	for _, o := range overlaps {
		fmt.Fprintf(out, "Overlap: %s\n", o)
	}
	return nil
}
