package oracle

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

var versionPattern = regexp.MustCompile(`version (\d+(?:\.\d+)*)`)

// CheckEnvironment verifies the configured prover can be run and is at
// least MinVersion. It returns the detected version, or nil when no
// minimum is configured.
func CheckEnvironment(ctx context.Context, cfg Config) (*version.Version, error) {
	path, err := exec.LookPath(cfg.Path)
	if err != nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "prover not found", Err: err}
	}
	if cfg.MinVersion == "" {
		return nil, nil
	}
	min, err := version.NewVersion(cfg.MinVersion)
	if err != nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "invalid min_version " + cfg.MinVersion, Err: err}
	}

	out, err := exec.CommandContext(ctx, path, cfg.VersionArgs...).Output()
	if err != nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "cannot query prover version", Err: err}
	}
	first, _, _ := strings.Cut(string(out), "\n")
	m := versionPattern.FindStringSubmatch(first)
	if m == nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "unrecognized version output: " + strings.TrimSpace(first)}
	}
	got, err := version.NewVersion(m[1])
	if err != nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "unrecognized version " + m[1], Err: err}
	}
	if got.LessThan(min) {
		return got, &EnvironmentError{Path: cfg.Path, Reason: "version " + got.String() + " is older than required " + min.String()}
	}
	return got, nil
}
