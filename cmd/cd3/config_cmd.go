package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupSetup,
	Short:   "Show or change settings",
	Long: `Show or change settings. Values are read from .cd3/config.yaml, the user
config file and CD3_* environment variables, in that order of precedence after
command-line flags.

Common keys:
  backend          file, sqlite or dolt
  prefix           item id prefix for new items
  list.sort        default sort for 'cd3 list', e.g. cd3-desc,name-asc
  lock-timeout     how long the file backend waits for its lock
  dolt.host, dolt.port, dolt.user, dolt.database, dolt.auto-commit
  telemetry.enabled, telemetry.stdout

Examples:
  cd3 config set list.sort "urgency-desc,cd3-desc"
  cd3 config get backend
  cd3 config show`,
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Print the effective settings",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.AllSettings()
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{
				"file":     config.ConfigFileUsed(),
				"settings": settings,
			})
		}
		if used := config.ConfigFileUsed(); used != "" {
			printf(cmd, "%s\n", ui.RenderMuted("# "+used))
		}
		out, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := config.GetString(key)
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{
				"key":   key,
				"value": value,
				"set":   config.IsSet(key),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

// settableKeys are the keys config set accepts.
var settableKeys = map[string]bool{
	"backend":           true,
	"prefix":            true,
	"no-color":          true,
	"lock-timeout":      true,
	"list.sort":         true,
	"dolt.host":         true,
	"dolt.port":         true,
	"dolt.user":         true,
	"dolt.database":     true,
	"dolt.auto-commit":  true,
	"telemetry.enabled": true,
	"telemetry.stdout":  true,
}

func knownKeys() string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to .cd3/config.yaml",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := strings.TrimSpace(args[0]), args[1]
		if !settableKeys[key] {
			return hintError{
				err:  fmt.Errorf("unknown config key %q", key),
				hint: "Known keys: " + knownKeys(),
			}
		}
		if key == "backend" && (!validBackend(value) || value == BackendMemory) {
			return fmt.Errorf("invalid backend %q (valid: file, sqlite, dolt)", value)
		}
		dir, err := resolveDataDir()
		if err != nil {
			return hintError{err: err, hint: "Run 'cd3 init' first, or pass --db"}
		}
		if err := config.SetLocalValue(dir, key, value); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{
				"key":      key,
				"value":    value,
				"location": dir,
			})
		}
		printf(cmd, "%s Set %s = %s\n", ui.RenderPassIcon(), key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
