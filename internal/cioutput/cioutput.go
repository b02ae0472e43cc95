// Package cioutput publishes run results to the CI job's output file.
package cioutput

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Result holds the values downstream CI steps consume after a run.
type Result struct {
	RunID        string
	Status       string
	Mutation     string
	ArtifactPath string
}

// Publish appends the run result to the GITHUB_OUTPUT file when available.
func Publish(res Result) error {
	values := map[string]string{
		"run_id":   res.RunID,
		"status":   res.Status,
		"mutation": res.Mutation,
	}
	if res.ArtifactPath != "" {
		values["plan_artifact"] = res.ArtifactPath
	}
	return Write(values)
}

// Write appends CI outputs to the GITHUB_OUTPUT file when available.
func Write(values map[string]string) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_OUTPUT"))
	if path == "" {
		return nil
	}
	if len(values) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.TrimSpace(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := sanitize(values[key])
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}

func sanitize(value string) string {
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "\r", "%0D")
	value = strings.ReplaceAll(value, "\n", "%0A")
	return value
}
