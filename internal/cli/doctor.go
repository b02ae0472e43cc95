package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/config"
)

const doctorTimeout = 2 * time.Minute

// newDoctorCommand creates the "doctor" subcommand, which verifies that the
// host and config are ready to run the pipeline.
func newDoctorCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check local prerequisites and config health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyEnvOverrides(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			defer cancel()

			if err := runDoctorChecks(ctx, logger, cfg); err != nil {
				return err
			}
			logger.Info("doctor checks passed")
			return nil
		},
	}
}

func runDoctorChecks(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	var fatalErrs []error

	fatal := func(err error) {
		logger.Error("doctor check failed", "error", err)
		fatalErrs = append(fatalErrs, err)
	}

	if err := checkToolBinary(ctx, cfg.Tool.Binary); err != nil {
		fatal(err)
	} else {
		logger.Info("tool binary is available", "binary", cfg.Tool.Binary)
	}

	if cfg.Checkout.Repository != "" {
		if _, err := exec.LookPath("git"); err != nil {
			fatal(fmt.Errorf("checkout is configured but git is not on PATH: %w", err))
		} else {
			logger.Info("git is available")
		}
	} else if err := checkDirExists(cfg.ToolWorkDir()); err != nil {
		fatal(fmt.Errorf("tool work dir: %w", err))
	} else {
		logger.Info("tool work dir exists", "dir", cfg.ToolWorkDir())
	}

	for _, name := range cfg.Names() {
		if _, err := config.ResolveEnvironment(cfg, name); err != nil {
			fatal(fmt.Errorf("environment %q: %w", name, err))
		} else {
			logger.Info("environment resolves", "environment", name)
		}
	}

	if err := checkDirWritable(cfg.ArtifactsDir()); err != nil {
		fatal(fmt.Errorf("artifact dir: %w", err))
	} else {
		logger.Info("artifact dir is writable", "dir", cfg.ArtifactsDir())
	}

	if !cfg.Journal.Disabled {
		if err := checkDirWritable(cfg.JournalDir()); err != nil {
			fatal(fmt.Errorf("journal dir: %w", err))
		} else {
			logger.Info("journal dir is writable", "dir", cfg.JournalDir())
		}
	}

	if cfg.Notify.WebhookURL != "" {
		if err := checkWebhookURL(cfg.Notify.WebhookURL); err != nil {
			fatal(err)
		} else {
			logger.Info("notification webhook URL is well-formed")
		}
	}

	for _, file := range cfg.Credentials.EnvFiles {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.BaseDir(), path)
		}
		if _, err := os.Stat(path); err != nil {
			fatal(fmt.Errorf("credential env file %q: %w", file, err))
		} else {
			logger.Info("credential env file exists", "file", file)
		}
	}

	if len(fatalErrs) > 0 {
		return fmt.Errorf("doctor found %d fatal issue(s); see log for details", len(fatalErrs))
	}
	return nil
}

// checkToolBinary verifies the tool is on PATH and answers a version probe.
func checkToolBinary(ctx context.Context, binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("tool binary %q not found on PATH: %w", binary, err)
	}
	cmd := exec.CommandContext(ctx, binary, "version")
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s version: %w", binary, err)
	}
	return nil
}

func checkDirExists(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}
	return nil
}

// checkDirWritable creates the directory if needed and round-trips a probe
// file through it.
func checkDirWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %q: %w", dir, err)
	}
	probe := filepath.Join(dir, ".stackctl-doctor")
	if err := os.WriteFile(probe, []byte("ok\n"), 0o644); err != nil {
		return fmt.Errorf("write probe in %q: %w", dir, err)
	}
	return os.Remove(probe)
}

func checkWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL %q must use http or https", raw)
	}
	if strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("webhook URL %q has no host", raw)
	}
	return nil
}
