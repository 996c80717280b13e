package startup

import (
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	label          = "com.pixpmusic.gnova"
	unitName       = "gnova.service"
	windowsAppName = "gnova"

	windowsRegistryKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
)

// Entry describes the command registered to run at login
type Entry struct {
	Exec string
	Args []string
}

// Current returns an entry launching this executable with args
func Current(args ...string) (Entry, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("resolve executable: %w", err)
	}
	return Entry{Exec: execPath, Args: args}, nil
}

// Enable registers the daemon to launch at login
func Enable(e Entry) error {
	switch runtime.GOOS {
	case "darwin":
		return writeFile(launchAgentPath(), LaunchAgent(e))
	case "linux":
		return writeFile(systemdUnitPath(), SystemdUnit(e))
	case "windows":
		return exec.Command("reg", "add", windowsRegistryKey,
			"/v", windowsAppName,
			"/t", "REG_SZ",
			"/d", e.commandLine(),
			"/f").Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable removes the login registration
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return removeFile(launchAgentPath())
	case "linux":
		return removeFile(systemdUnitPath())
	case "windows":
		output, err := exec.Command("reg", "delete", windowsRegistryKey,
			"/v", windowsAppName,
			"/f").CombinedOutput()
		// Missing value means already disabled
		if err != nil && !strings.Contains(string(output), "unable to find") {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsEnabled checks if the daemon is registered for login
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return exists(launchAgentPath())
	case "linux":
		return exists(systemdUnitPath())
	case "windows":
		return exec.Command("reg", "query", windowsRegistryKey, "/v", windowsAppName).Run() == nil
	default:
		return false
	}
}

// LaunchAgent renders a macOS LaunchAgent plist for e
func LaunchAgent(e Entry) string {
	var args strings.Builder
	for _, a := range append([]string{e.Exec}, e.Args...) {
		fmt.Fprintf(&args, "        <string>%s</string>\n", html.EscapeString(a))
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
%s    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`, label, args.String())
}

// SystemdUnit renders a systemd user unit for e
func SystemdUnit(e Entry) string {
	return fmt.Sprintf(`[Unit]
Description=gnova G-code visualizer
After=sound.target

[Service]
ExecStart=%s
Restart=on-failure

[Install]
WantedBy=default.target
`, e.commandLine())
}

func (e Entry) commandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, a := range append([]string{e.Exec}, e.Args...) {
		if strings.ContainsAny(a, " \t\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func launchAgentPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist")
}

func systemdUnitPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "systemd", "user", unitName)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
