package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devkit-tools/devkit-validator/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookScript(t *testing.T) {
	script := hookScript("/opt/it's here/devkit-validator")
	assert.Contains(t, script, "#!/bin/sh\n")
	assert.Contains(t, script, hookMarker)
	assert.Contains(t, script, `exec '/opt/it'\''s here/devkit-validator' validate --pre-commit`)
}

func TestInstallHook_FreshAndReinstall(t *testing.T) {
	hooksDir := filepath.Join(t.TempDir(), "hooks")

	path, err := installHook(hooksDir, "/usr/local/bin/devkit-validator", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(hooksDir, "pre-commit"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "hook must be executable")

	_, err = installHook(hooksDir, "/usr/bin/devkit-validator", false)
	require.NoError(t, err, "a managed hook is replaced without --force")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/usr/bin/devkit-validator")
}

func TestInstallHook_ForeignHook(t *testing.T) {
	hooksDir := t.TempDir()
	path := filepath.Join(hooksDir, "pre-commit")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nmake lint\n"), 0o755))

	_, err := installHook(hooksDir, "devkit-validator", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForeignHook))

	_, err = installHook(hooksDir, "devkit-validator", true)
	require.NoError(t, err)
	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nmake lint\n", string(backup))
}

func TestUninstallHook(t *testing.T) {
	hooksDir := t.TempDir()

	removed, err := uninstallHook(hooksDir)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = installHook(hooksDir, "devkit-validator", false)
	require.NoError(t, err)
	removed, err = uninstallHook(hooksDir)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, filepath.Join(hooksDir, "pre-commit"))

	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "pre-commit"), []byte("#!/bin/sh\n"), 0o755))
	_, err = uninstallHook(hooksDir)
	assert.True(t, errors.Is(err, ErrForeignHook))
	assert.FileExists(t, filepath.Join(hooksDir, "pre-commit"))
}

func TestInstallHookInteractive(t *testing.T) {
	hooksDir := t.TempDir()
	path := filepath.Join(hooksDir, "pre-commit")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nmake lint\n"), 0o755))
	t.Cleanup(func() { presenter.Default().SetInput(os.Stdin) })

	presenter.Default().SetInput(strings.NewReader("n\n"))
	_, err := installHookInteractive(hooksDir, "devkit-validator", false, true)
	assert.True(t, errors.Is(err, ErrForeignHook), "declining keeps the foreign hook")
	assert.NoFileExists(t, path+".bak")

	_, err = installHookInteractive(hooksDir, "devkit-validator", false, false)
	assert.True(t, errors.Is(err, ErrForeignHook), "no prompt without a terminal")

	presenter.Default().SetInput(strings.NewReader("y\n"))
	_, err = installHookInteractive(hooksDir, "devkit-validator", false, true)
	require.NoError(t, err)
	assert.FileExists(t, path+".bak")
}
