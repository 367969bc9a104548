package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/buckets"
	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

var bucketCmd = &cobra.Command{
	Use:     "bucket",
	Aliases: []string{"buckets"},
	GroupID: GroupSetup,
	Short:   "Show and tune the rating buckets",
	Long: `Each category (urgency, value, duration) has three buckets. A bucket's
weight feeds the metrics: Cost of Delay = urgency weight x value weight and
CD3 = Cost of Delay / duration weight. A limit caps how many items a bucket
should hold; going over it is allowed but flagged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBucketList(cmd)
	},
}

var bucketListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the nine buckets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBucketList(cmd)
	},
}

func runBucketList(cmd *cobra.Command) error {
	e, err := mustEngine()
	if err != nil {
		return err
	}
	state := e.State()
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"buckets":           state.Buckets,
			"confidenceWeights": state.ConfidenceWeights,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.BucketsTable(state.Buckets))
	return nil
}

var bucketSetCmd = &cobra.Command{
	Use:   "set <category> <level> <limit|weight|title|description> <value>",
	Short: "Change one field of one bucket",
	Long: `Change one field of one bucket. A weight change recomputes every item rated
in that category. Use "none" (or an empty value) to clear a limit.

Examples:
  cd3 bucket set urgency 3 weight 8
  cd3 bucket set duration high limit 4
  cd3 bucket set value 1 title "Nice to have"`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		c, err := types.ParseCategory(args[0])
		if err != nil {
			return err
		}
		l, err := parseLevelArg(e.State().Buckets, c, args[1])
		if err != nil {
			return err
		}
		if !l.IsValid() {
			return fmt.Errorf("bucket level must be 1-3")
		}
		field, err := buckets.ParseField(args[2])
		if err != nil {
			return err
		}
		value := strings.Join(args[3:], " ")
		if field == buckets.FieldLimit && strings.EqualFold(value, "none") {
			value = ""
		}
		res, err := e.SetBucketField(rootCtx, c, l, field, value)
		changed, _ := res.Get("changed").([]string)
		return finish(cmd, res, err, "%s %s/%d %s = %q (%d items rescored)", ui.RenderPassIcon(), c, l, field, value, len(changed))
	},
}

var bucketImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Apply a TOML or YAML bucket preset",
	Long: `Apply a bucket preset. Files ending in .yaml or .yml are read as YAML,
everything else (and stdin unless --format yaml) as TOML. Nothing is applied
if any part of the preset is invalid.

  name = "platform team"

  [urgency.3]
  weight = 8
  limit = 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		p, err := readPreset(cmd, args[0], format)
		if err != nil {
			return err
		}
		res, err := e.ApplyBucketPreset(rootCtx, p)
		changed, _ := res.Get("changed").([]string)
		return finish(cmd, res, err, "%s Applied preset %q (%d items rescored)", ui.RenderPassIcon(), p.Name, len(changed))
	},
}

func readPreset(cmd *cobra.Command, path, format string) (*buckets.Preset, error) {
	if path != "-" && format == "" {
		return buckets.LoadPreset(path)
	}
	text, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = "toml"
		if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
			format = "yaml"
		}
	}
	switch strings.ToLower(format) {
	case "toml":
		return buckets.ParsePresetTOML([]byte(text))
	case "yaml", "yml":
		return buckets.ParsePresetYAML([]byte(text))
	}
	return nil, fmt.Errorf("unknown preset format %q (valid: toml, yaml)", format)
}

var bucketExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the buckets as a preset (TOML by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		name, _ := cmd.Flags().GetString("name")
		p := buckets.ExportPreset(name, e.State().Buckets)

		w := cmd.OutOrStdout()
		if len(args) == 1 && args[0] != "-" {
			if format == "" {
				if ext := strings.ToLower(filepath.Ext(args[0])); ext == ".yaml" || ext == ".yml" {
					format = "yaml"
				}
			}
			f, err := os.Create(args[0]) // #nosec G304 - user-chosen output file
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		switch strings.ToLower(format) {
		case "", "toml":
			return p.WriteTOML(w)
		case "yaml", "yml":
			return p.WriteYAML(w)
		}
		return fmt.Errorf("unknown preset format %q (valid: toml, yaml)", format)
	},
}

var confidenceCmd = &cobra.Command{
	Use:     "confidence",
	GroupID: GroupSetup,
	Short:   "Show or set the survey confidence multipliers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		state := e.State()
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{
				"weights": state.ConfidenceWeights,
				"labels":  state.ConfidenceLevelLabels,
			})
		}
		for _, l := range types.ConfidenceLevels() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d  %-20s %s\n", l, state.ConfidenceLevelLabels[l],
				strconv.FormatFloat(state.ConfidenceWeights[l], 'f', 2, 64))
		}
		return nil
	},
}

var confidenceSetCmd = &cobra.Command{
	Use:   "set <level 1-4> <multiplier>",
	Short: "Set the multiplier of one confidence level",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := mustEngine()
		if err != nil {
			return err
		}
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid confidence level %q", args[0])
		}
		m, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid multiplier %q", args[1])
		}
		res, err := e.SetConfidenceWeight(rootCtx, types.ConfidenceLevel(level), m)
		return finish(cmd, res, err, "%s Confidence level %d multiplier = %s", ui.RenderPassIcon(), level, args[1])
	},
}

func init() {
	bucketImportCmd.Flags().String("format", "", "Preset format: toml or yaml (default from file extension)")
	bucketExportCmd.Flags().String("format", "", "Preset format: toml or yaml (default from file extension, else toml)")
	bucketExportCmd.Flags().String("name", "", "Preset name written into the file")

	bucketCmd.AddCommand(bucketListCmd, bucketSetCmd, bucketImportCmd, bucketExportCmd)
	confidenceCmd.AddCommand(confidenceSetCmd)
	rootCmd.AddCommand(bucketCmd, confidenceCmd)
}
