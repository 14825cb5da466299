package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/gitops"
)

// rulesFile is where init writes the editable category keyword table.
const rulesFile = "rules/categories.yaml"

func newInitCommand() *cobra.Command {
	var name string
	var members []string
	var driver string
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Tally data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default(name)
			cfg.Household.Members = members
			cfg.Storage.Driver = driver
			cfg.Categories.File = rulesFile
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := runInit(cmd.Context(), absDir, cfg, !noGit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized Tally data directory at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "household name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringSliceVar(&members, "member", nil, "household member user tag (repeatable)")
	cmd.Flags().StringVar(&driver, "storage", config.DriverFile, "storage driver: file or sqlite")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "skip git init and the initial commit")

	return cmd
}

func runInit(ctx context.Context, dir string, cfg *config.Config, withGit bool) error {
	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"logs",
		"recurring",
		"rules",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := category.Save(filepath.Join(dir, rulesFile), category.Default()); err != nil {
		return err
	}

	gitignore := cfg.Storage.Path + "\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !withGit {
		return nil
	}

	if err := gitops.Init(ctx, dir); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	if _, err := gitops.CommitAll(ctx, dir, "init: Initialize "+cfg.Household.Name, author); err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	return nil
}
