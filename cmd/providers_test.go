package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/internal/config"
)

func withTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	previous := providersConfigPath
	providersConfigPath = dir
	t.Cleanup(func() { providersConfigPath = previous })
	return dir
}

func TestProvidersDisablePersistsRestrictedList(t *testing.T) {
	dir := withTempConfig(t)

	require.NoError(t, runProvidersDisable(providersDisableCmd, []string{"docdb"}))

	list := config.NewProviderListWithPath(dir)
	ids, restricted, err := list.Active()
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.Empty(t, ids)
}

func TestProvidersEnableAfterDisable(t *testing.T) {
	dir := withTempConfig(t)

	require.NoError(t, runProvidersDisable(providersDisableCmd, []string{"docdb"}))
	require.NoError(t, runProvidersEnable(providersEnableCmd, []string{"docdb"}))

	list := config.NewProviderListWithPath(dir)
	ids, restricted, err := list.Active()
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.Contains(t, ids, "docdb")
}

func TestProvidersEnableUnknown(t *testing.T) {
	withTempConfig(t)

	err := runProvidersEnable(providersEnableCmd, []string{"no-such-provider"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-provider")
}

func TestSetVersion(t *testing.T) {
	previous := rootCmd.Version
	defer SetVersion(previous)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", rootCmd.Version)
}
