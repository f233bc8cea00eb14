package urclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultCommandPort, cfg.commandPort)
	assert.Equal(t, DefaultFeedbackPort, cfg.feedbackPort)
	assert.Equal(t, DefaultDashboardPort, cfg.dashboardPort)
	assert.Equal(t, DefaultRTDEPort, cfg.rtdePort)
	assert.Equal(t, DefaultSSHPort, cfg.sshPort)
	assert.Equal(t, 3*time.Second, cfg.connectTimeout)
	assert.Equal(t, time.Second, cfg.stateLockWindow)
	assert.Len(t, cfg.credentials, 2)
	assert.Len(t, cfg.programDirs, 3)
	assert.NotNil(t, cfg.logger)
}

func TestNewConfig_Options(t *testing.T) {
	cfg, err := NewConfig(
		WithCommandPort(40002),
		WithDashboardPort(40000),
		WithDashboardTimeout(4*time.Second),
		WithPollInterval(5*time.Second),
		WithStateLockWindow(2*time.Second),
		WithCredentials(Credential{User: "admin", Password: "secret"}),
		WithProgramDirs("/custom"),
	)
	require.NoError(t, err)

	assert.Equal(t, 40002, cfg.commandPort)
	assert.Equal(t, 40000, cfg.dashboardPort)
	assert.Equal(t, 4*time.Second, cfg.dashboardTimeout)
	assert.Equal(t, 5*time.Second, cfg.pollInterval)
	assert.Equal(t, 2*time.Second, cfg.stateLockWindow)
	assert.Equal(t, []Credential{{User: "admin", Password: "secret"}}, cfg.credentials)
	assert.Equal(t, []string{"/custom"}, cfg.programDirs)
}

func TestNewConfig_InvalidValues(t *testing.T) {
	_, err := NewConfig(WithCommandPort(0))
	require.Error(t, err)

	_, err = NewConfig(WithCommandPort(70000))
	require.Error(t, err)

	_, err = NewConfig(WithPollInterval(0))
	require.Error(t, err)

	_, err = NewConfig(WithConnectTimeout(-time.Second))
	require.Error(t, err)
}

func TestListPrograms_NotConnected(t *testing.T) {
	c := newTestClient(t)

	_, err := c.ListPrograms()
	require.ErrorIs(t, err, ErrNotConnected)
}
