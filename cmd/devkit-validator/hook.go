package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devkit-tools/devkit-validator/pkg/gitutil"
	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const hookMarker = "# managed by devkit-validator"

// ErrForeignHook is returned when a pre-commit hook not written by this tool
// is in the way.
var ErrForeignHook = errors.New("pre-commit hook was not installed by devkit-validator")

type HookInstallConfig struct {
	Force bool
}

func NewHookInstallConfig() *HookInstallConfig {
	return &HookInstallConfig{
		Force: false,
	}
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook",
	Long:  `Install or remove the git pre-commit hook that validates staged components.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the pre-commit hook",
	Long: `Write .git/hooks/pre-commit so that every commit runs
"devkit-validator validate --pre-commit" on the staged files.

An existing hook written by another tool is only replaced with --force (or
after confirming at an interactive prompt), and is kept as pre-commit.bak.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getHookInstallConfigFromFlags(cmd)

		hooksDir, err := gitHooksDir(repoRoot(cmd.Context()))
		if err != nil {
			presenter.Error(err, "Failed to locate git hooks directory")
			exit(1)
		}
		binary, err := os.Executable()
		if err != nil {
			binary = "devkit-validator"
		}

		interactive := isatty.IsTerminal(os.Stdin.Fd())
		path, err := installHookInteractive(hooksDir, binary, config.Force, interactive)
		if err != nil {
			presenter.Error(err, "Failed to install pre-commit hook")
			exit(1)
		}
		presenter.Success(fmt.Sprintf("Installed pre-commit hook at %s", path))
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the pre-commit hook",
	Run: func(cmd *cobra.Command, _ []string) {
		hooksDir, err := gitHooksDir(repoRoot(cmd.Context()))
		if err != nil {
			presenter.Error(err, "Failed to locate git hooks directory")
			exit(1)
		}
		removed, err := uninstallHook(hooksDir)
		if err != nil {
			presenter.Error(err, "Failed to remove pre-commit hook")
			exit(1)
		}
		if !removed {
			presenter.Info("No pre-commit hook installed")
			return
		}
		presenter.Success("Removed pre-commit hook")
	},
}

// installHookInteractive asks before replacing a foreign hook when stdin is
// a terminal.
func installHookInteractive(hooksDir, binary string, force, interactive bool) (string, error) {
	path, err := installHook(hooksDir, binary, force)
	if !errors.Is(err, ErrForeignHook) || !interactive {
		return path, err
	}
	answer := presenter.Prompt("A pre-commit hook from another tool exists. Replace it and keep a .bak copy?", "y", "N")
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		return path, err
	}
	return installHook(hooksDir, binary, true)
}

func init() {
	defaults := NewHookInstallConfig()
	hookInstallCmd.Flags().Bool("force", defaults.Force, "Replace an existing pre-commit hook")

	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	rootCmd.AddCommand(hookCmd)
}

func getHookInstallConfigFromFlags(cmd *cobra.Command) *HookInstallConfig {
	config := NewHookInstallConfig()
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	return config
}

func gitHooksDir(root string) (string, error) {
	repo, err := gitutil.Open(root)
	if err != nil {
		return "", err
	}
	gitDir := filepath.Join(repo.Root(), ".git")
	info, err := os.Stat(gitDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to stat .git")
	}
	if !info.IsDir() {
		return "", errors.Errorf("%s is not a directory; hooks of linked worktrees are not supported", gitDir)
	}
	return filepath.Join(gitDir, "hooks"), nil
}

func hookScript(binary string) string {
	return fmt.Sprintf(`#!/bin/sh
%s
exec '%s' validate --pre-commit
`, hookMarker, strings.ReplaceAll(binary, "'", `'\''`))
}

func installHook(hooksDir, binary string, force bool) (string, error) {
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create hooks directory")
	}
	path := filepath.Join(hooksDir, "pre-commit")

	existing, err := os.ReadFile(path)
	switch {
	case err == nil && !strings.Contains(string(existing), hookMarker):
		if !force {
			return "", errors.Wrapf(ErrForeignHook, "%s exists (use --force to replace it)", path)
		}
		if err := os.WriteFile(path+".bak", existing, 0o755); err != nil {
			return "", errors.Wrap(err, "failed to back up existing hook")
		}
	case err != nil && !os.IsNotExist(err):
		return "", errors.Wrap(err, "failed to read existing hook")
	}

	if err := os.WriteFile(path, []byte(hookScript(binary)), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to write hook")
	}
	return path, nil
}

// uninstallHook removes the hook if this tool wrote it
func uninstallHook(hooksDir string) (bool, error) {
	path := filepath.Join(hooksDir, "pre-commit")
	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to read hook")
	}
	if !strings.Contains(string(existing), hookMarker) {
		return false, errors.Wrapf(ErrForeignHook, "refusing to remove %s", path)
	}
	if err := os.Remove(path); err != nil {
		return false, errors.Wrap(err, "failed to remove hook")
	}
	return true, nil
}
