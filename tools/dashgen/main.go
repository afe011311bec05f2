// Command dashgen generates the Grafana dashboard and Prometheus rule
// artifacts committed under deploy/. Run it after changing any panel or
// rule builder so the committed files stay in sync.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sellerops/amazon-connector/tools/dashgen/dashboards"
	"github.com/sellerops/amazon-connector/tools/dashgen/rules"
	"github.com/sellerops/amazon-connector/tools/dashgen/validate"
)

const generatedHeader = "# Generated by tools/dashgen. Do not edit by hand.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config, validateOnly bool) error {
	dash, err := dashboards.BuildOverview().Build()
	if err != nil {
		return fmt.Errorf("building overview dashboard: %w", err)
	}

	result := validate.Dashboard(dash, KnownMetrics)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !result.Ok() {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
		return fmt.Errorf("dashboard validation failed with %d errors", len(result.Errors))
	}

	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	if cfg.DashboardEnabled {
		dashJSON, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling dashboard: %w", err)
		}
		dashJSON = append(dashJSON, '\n')

		path := filepath.Join(cfg.OutputDir, "grafana", "data", "amzc-overview.json")
		if err := writeArtifact(path, dashJSON); err != nil {
			return err
		}
	}

	if cfg.RulesEnabled {
		artifacts := []struct {
			name string
			cr   rules.PrometheusRule
		}{
			{"amzc-recording-rules.yaml", rules.RecordingRules()},
			{"amzc-alerts.yaml", rules.AlertRules()},
		}
		for _, a := range artifacts {
			data, err := yaml.Marshal(a.cr)
			if err != nil {
				return fmt.Errorf("marshaling %s: %w", a.name, err)
			}
			data = append([]byte(generatedHeader), data...)

			path := filepath.Join(cfg.OutputDir, "prometheus", a.name)
			if err := writeArtifact(path, data); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // generated artifacts are world-readable
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
