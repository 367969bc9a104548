package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/idgen"
	"github.com/cd3-tool/cd3/internal/storage"
	"github.com/cd3-tool/cd3/internal/types"
	"github.com/cd3-tool/cd3/internal/ui"
)

const dataDirGitignore = `# cd3 runtime files
*.lock
*.tmp
cd3.db-*
`

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: GroupSetup,
	Short:   "Create a .cd3 data directory here",
	Long: `Create a .cd3 data directory in the working directory (or at --db) with a
config.yaml recording the storage backend and the item id prefix, and an
empty session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		force, _ := cmd.Flags().GetBool("force")
		return runInit(cmd, prefix, force)
	},
}

func init() {
	initCmd.Flags().String("prefix", idgen.DefaultPrefix, "Prefix for item ids")
	initCmd.Flags().Bool("force", false, "Reinitialize even if a session already exists")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, prefix string, force bool) error {
	dir := dbPath
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = filepath.Join(cwd, config.DirName)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	backend := strings.ToLower(backendName)
	if backend == "" {
		backend = BackendFile
	}
	if !validBackend(backend) || backend == BackendMemory {
		return fmt.Errorf("cannot initialize with backend %q (valid: file, sqlite, dolt)", backend)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.ContainsAny(prefix, " \t/") {
		return fmt.Errorf("invalid prefix %q", prefix)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := config.SetLocalValue(dir, "backend", backend); err != nil {
		return err
	}
	if err := config.SetLocalValue(dir, "prefix", prefix); err != nil {
		return err
	}
	ignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(ignore); os.IsNotExist(err) {
		if err := os.WriteFile(ignore, []byte(dataDirGitignore), 0o600); err != nil {
			WarnError("failed to write %s: %v", ignore, err)
		}
	}

	local := config.LoadLocalConfig(dir)
	b, err := openBackend(rootCtx, dir, backend, local)
	if err != nil {
		return err
	}
	s := storage.NewStore(b)
	defer func() { _ = s.Close() }()

	existing, err := s.LoadState(rootCtx)
	if err != nil {
		return err
	}
	if existing != nil && !force {
		return hintError{
			err:  fmt.Errorf("%s already holds a session", dir),
			hint: "Use 'cd3 init --force' to start over, or 'cd3 reset' to clear it",
		}
	}
	if err := s.Save(rootCtx, types.DefaultAppState(), []*types.Item{}); err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"success": true,
			"dir":     dir,
			"backend": backend,
			"prefix":  prefix,
		})
	}
	printf(cmd, "%s Initialized cd3 in %s (backend: %s, prefix: %s)\n", ui.RenderPassIcon(), dir, backend, prefix)
	printf(cmd, "Next: cd3 add \"First item\"\n")
	return nil
}
