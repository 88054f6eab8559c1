package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssargent/sasinspect/pkg/config"
)

func TestSystemdUnit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/var/lib/sasinspect"

	unit := systemdUnit(cfg, "/etc/sasinspect/config.yaml", "testuser", "/usr/local/bin/sasinspect")

	assert.Contains(t, unit, "User=testuser")
	assert.Contains(t, unit, "Group=testuser")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/sasinspect serve --config /etc/sasinspect/config.yaml")
	assert.Contains(t, unit, "ReadWritePaths=/var/lib/sasinspect")
	assert.Contains(t, unit, "ReadWritePaths=/etc/sasinspect")
	assert.Contains(t, unit, "Restart=on-failure")
}

func TestJournalArgs(t *testing.T) {
	assert.Equal(t, []string{"-u", serviceName}, journalArgs(false, 0))
	assert.Equal(t, []string{"-u", serviceName, "-f", "-n50"}, journalArgs(true, 50))
}

func TestServiceCommandStructure(t *testing.T) {
	assert.Equal(t, "service", serviceCmd.Use)
	assert.Contains(t, serviceCmd.Short, "systemd")

	subCommands := serviceCmd.Commands()
	commandNames := make([]string, len(subCommands))
	for i, cmd := range subCommands {
		commandNames[i] = cmd.Use
	}

	for _, name := range []string{"install", "start", "stop", "restart", "status", "logs", "uninstall"} {
		assert.Contains(t, commandNames, name)
	}

	assert.NotNil(t, installServiceCmd.Flags().Lookup("user"))
	assert.NotNil(t, installServiceCmd.Flags().Lookup("service-data-dir"))
	assert.NotNil(t, logsCmd.Flags().Lookup("follow"))
}
