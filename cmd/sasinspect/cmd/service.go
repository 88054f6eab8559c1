/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/sasinspect/pkg/config"
)

const serviceName = "sasinspect.service"

// unitPath is where the systemd unit is written
var unitPath = "/etc/systemd/system/" + serviceName

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the sasinspect API server as a systemd service",
	Long: `Manage 'sasinspect serve' as a systemd service. The unit runs with
hardened settings and restarts on failure.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install sasinspect as a systemd service",
	Long: `Install sasinspect as a systemd service.

This will:
- Create or use existing configuration
- Generate systemd unit file
- Enable and optionally start the service

Examples:
  sasinspect service install
  sasinspect service install --service-data-dir /var/lib/sasinspect --user sasinspect`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("service-data-dir")
		user, _ := cmd.Flags().GetString("user")
		port, _ := cmd.Flags().GetInt("port")
		startNow, _ := cmd.Flags().GetBool("start")
		path := configPath(cmd)

		// Check if running as root (required for systemd operations)
		if os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges; run with: sudo sasinspect service install")
		}

		cmd.Printf("🔧 Installing sasinspect systemd service...\n")

		var svcCfg *config.Config
		var err error
		if config.ConfigExists(path) {
			svcCfg, err = config.LoadConfig(path)
			if err != nil {
				return err
			}
			cmd.Printf("✅ Loaded existing configuration\n")
		} else {
			svcCfg, err = config.BootstrapConfig(path, dataDir)
			if err != nil {
				return err
			}
			cmd.Printf("✅ Created new configuration at %s\n", path)
		}

		if cmd.Flags().Changed("service-data-dir") {
			svcCfg.DataDir = dataDir
		}
		if cmd.Flags().Changed("port") {
			svcCfg.Server.Port = port
		}
		if err := svcCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := config.SaveConfig(svcCfg, path); err != nil {
			return err
		}

		binary, err := os.Executable()
		if err != nil {
			binary = "/usr/local/bin/sasinspect"
		}
		if err := os.WriteFile(unitPath, []byte(systemdUnit(svcCfg, path, user, binary)), 0600); err != nil {
			return fmt.Errorf("failed to write systemd unit: %w", err)
		}

		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}
		if err := runSystemctlCommand("enable", serviceName); err != nil {
			return fmt.Errorf("failed to enable service: %w", err)
		}
		cmd.Printf("✅ Service enabled successfully\n")

		if startNow {
			if err := runSystemctlCommand("start", serviceName); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}
			cmd.Printf("✅ Service started successfully\n")
		}

		cmd.Printf("\n🎉 sasinspect service installed!\n")
		cmd.Printf("Service: %s\n", serviceName)
		cmd.Printf("Config: %s\n", path)
		cmd.Printf("Data: %s\n", svcCfg.DataDir)
		cmd.Printf("Port: %d\n", svcCfg.Server.Port)
		if !startNow {
			cmd.Printf("\nTo start the service: sudo systemctl start %s\n", serviceName)
		}
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// systemctlCmd builds a subcommand that passes action through to systemctl
func systemctlCmd(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runSystemctlCommand(action, serviceName); err != nil {
				return fmt.Errorf("systemctl %s failed: %w", action, err)
			}
			if done != "" {
				cmd.Printf("✅ %s\n", done)
			}
			return nil
		},
	}
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show sasinspect service logs",
	Long: `Show sasinspect service logs using journalctl.

Examples:
  sasinspect service logs
  sasinspect service logs -f  # Follow logs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand("journalctl", journalArgs(follow, lines)...)
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the sasinspect service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall requires root privileges; run with: sudo sasinspect service uninstall")
		}

		cmd.Printf("🗑️  Uninstalling sasinspect service...\n")

		_ = runSystemctlCommand("stop", serviceName) // Ignore errors if already stopped
		if err := runSystemctlCommand("disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}

		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}

		cmd.Printf("✅ sasinspect service uninstalled\n")
		cmd.Printf("Note: Configuration and data files were not removed\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the sasinspect service", "sasinspect service started"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the sasinspect service", "sasinspect service stopped"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the sasinspect service", "sasinspect service restarted"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show sasinspect service status", ""))
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallCmd)

	installServiceCmd.Flags().String("service-data-dir", "/var/lib/sasinspect", "Data directory for the service")
	installServiceCmd.Flags().String("user", "sasinspect", "User to run the service as")
	installServiceCmd.Flags().Int("port", 8080, "Port for the service")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// systemdUnit renders the unit file for running serve under systemd
func systemdUnit(cfg *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=sasinspect API server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, cfg.DataDir, filepath.Dir(configPath))
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
