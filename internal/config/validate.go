package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateExtractor(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateJournal(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	for _, root := range c.Paths.Roots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("paths.roots entry %q must be an absolute path", root)
		}
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if c.Monitor.Extension == "" || c.Monitor.Extension == "." {
		return errors.New("monitor.extension must be set (e.g. \".txrm\")")
	}
	if err := ensurePositiveMap(map[string]int{
		"monitor.scan_interval":              c.Monitor.ScanInterval,
		"monitor.sample_interval":            c.Monitor.SampleInterval,
		"monitor.settle_window":              c.Monitor.SettleWindow,
		"monitor.max_concurrent_extractions": c.Monitor.MaxConcurrentExtractions,
	}); err != nil {
		return err
	}
	if c.Monitor.SampleInterval >= c.Monitor.SettleWindow {
		return errors.New("monitor.sample_interval must be shorter than monitor.settle_window")
	}
	return nil
}

func (c *Config) validateExtractor() error {
	if c.Extractor.Command == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/txrmwatch/config.toml"
		}
		return fmt.Errorf("extractor.command is required. Edit %s (create with 'txrmwatch config init')", defaultPath)
	}
	if c.Extractor.Timeout <= 0 {
		return errors.New("extractor.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateJournal() error {
	if c.Journal.Enabled && c.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
