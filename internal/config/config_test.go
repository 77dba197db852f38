package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		Owner:          "",
		DatabasePath:   ".bonfire",
		BindAddr:       "0.0.0.0",
		TokenName:      "",
		TokenSymbol:    "",
		MaxReward:      0,
		MaxSubmissions: 0,
		MetricsPort:    12798,
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
owner: "000102030405060708090a0b0c0d0e0f10111213"
databasePath: ".bonfire"
bindAddr: "127.0.0.1"
tokenName: "Test Points"
tokenSymbol: "TEST"
maxReward: 5000000
maxSubmissions: 100
metricsPort: 8088
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-bonfire.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		Owner:          "000102030405060708090a0b0c0d0e0f10111213",
		DatabasePath:   ".bonfire",
		BindAddr:       "127.0.0.1",
		TokenName:      "Test Points",
		TokenSymbol:    "TEST",
		MaxReward:      5000000,
		MaxSubmissions: 100,
		MetricsPort:    8088,
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	// Without Config file
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Expected is the original default values from globalConfig
	expected := &Config{
		Owner:          "",
		DatabasePath:   ".bonfire",
		BindAddr:       "0.0.0.0",
		TokenName:      "",
		TokenSymbol:    "",
		MaxReward:      0,
		MaxSubmissions: 0,
		MetricsPort:    12798,
	}

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_WithOwnerConfig(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
owner: "ffffffffffffffffffffffffffffffffffffffff"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-owner.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	expected := "ffffffffffffffffffffffffffffffffffffffff"
	if cfg.Owner != expected {
		t.Errorf("expected Owner to be %s, got: %s", expected, cfg.Owner)
	}
}
