// Package preflight implements the startup gate that runs before any
// worker is launched: config bootstrapping, dependency synchronization and
// best-effort storage initialization.
package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/agenthost/agenthost/internal/layout"
)

// EnsureConfigFile makes sure the environment config file exists,
// materializing it from the template on first run. An existing config file
// is never touched. A missing template is a recoverable condition: the
// supervisor proceeds and individual workers fail on their own later.
func EnsureConfigFile(logger *slog.Logger, loc *layout.RuntimeLocation) error {
	if _, err := os.Stat(loc.ConfigPath); err == nil {
		return nil
	}

	template := loc.TemplatePath()
	data, err := os.ReadFile(template)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Error("config_template_missing",
			"template", template,
			"config", loc.ConfigPath,
			"action", "create the config file manually and restart",
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config template: %w", err)
	}

	if err := os.WriteFile(loc.ConfigPath, data, 0o600); err != nil {
		return fmt.Errorf("materialize config file: %w", err)
	}

	logger.Warn("config_created_from_template",
		"config", loc.ConfigPath,
		"action", "add your API keys and restart the application",
	)
	return nil
}
