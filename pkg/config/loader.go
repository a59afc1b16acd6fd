package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognitive-radio/crts/pkg/models"
)

// LoadParameterSet loads an engine file. A relative override_file is
// resolved against the engine file's directory.
func LoadParameterSet(path string) (*models.ParameterSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine file %s: %w", path, err)
	}
	p, err := ParseParameterSetYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse engine file %s: %w", path, err)
	}
	p.OverrideFile = resolve(filepath.Dir(path), p.OverrideFile)
	return p, nil
}

// LoadScenario loads and parses a scenario file
func LoadScenario(path string) (*models.ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	sc, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return sc, nil
}

// LoadMaster loads a master test list and resolves its relative paths
// against the master file's directory.
func LoadMaster(path string) (*Master, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read master file %s: %w", path, err)
	}
	m, err := ParseMasterYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master file %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i := range m.Engines {
		m.Engines[i] = resolve(dir, m.Engines[i])
	}
	for i := range m.Scenarios {
		m.Scenarios[i] = resolve(dir, m.Scenarios[i])
	}
	return m, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
