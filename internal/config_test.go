package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestEngineConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     EngineConfig
		wantErr bool
	}{
		{"valid", EngineConfig{BaseURL: "http://engine:8000", Timeout: 5 * time.Second}, false},
		{"https", EngineConfig{BaseURL: "https://engine.example.com/api", Timeout: time.Minute}, false},
		{"missing url", EngineConfig{Timeout: time.Second}, true},
		{"not a url", EngineConfig{BaseURL: "engine:8000", Timeout: time.Second}, true},
		{"zero timeout", EngineConfig{BaseURL: "http://engine"}, true},
		{"tiny timeout", EngineConfig{BaseURL: "http://engine", Timeout: time.Millisecond}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAutosaveAndForecastConfig(t *testing.T) {
	if err := (&AutosaveConfig{}).Validate(); err == nil {
		t.Error("zero autosave window should fail")
	}
	if err := (&AutosaveConfig{Window: 500 * time.Millisecond}).Validate(); err != nil {
		t.Errorf("valid window: %v", err)
	}
	if err := (&ForecastConfig{}).Validate(); err != nil {
		t.Errorf("zero min_visible disables padding and is valid: %v", err)
	}
	if err := (&ForecastConfig{MinVisible: -time.Second}).Validate(); err == nil {
		t.Error("negative min_visible should fail")
	}
}

func TestFullConfig_MissingPaths(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Accounts.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing accounts path should fail")
	}
	cfg = NewDefaultConfig()
	cfg.Catalog.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing catalog path should fail")
	}
}
