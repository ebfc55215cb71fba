package internal

import (
	"strings"
	"testing"
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

func TestRenderConfig_EmptyModeDefaultsLocal(t *testing.T) {
	cfg := RenderConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty render mode should default to local: %v", err)
	}
	if cfg.Mode != RenderModeLocal {
		t.Errorf("mode = %q, want %q", cfg.Mode, RenderModeLocal)
	}
}

func TestRenderConfig_InvalidMode(t *testing.T) {
	cfg := RenderConfig{Mode: "pandoc"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid render mode should fail validation")
	}
}

func TestRepoConfig_Defaults(t *testing.T) {
	cfg := RepoConfig{Path: "/srv/content.git"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("repo config should pass: %v", err)
	}
	if cfg.MainBranch != "main" {
		t.Errorf("main branch = %q, want main", cfg.MainBranch)
	}

	cfg = RepoConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing repo path should fail validation")
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
