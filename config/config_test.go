package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CMOCKA_CONFIG_FILE", "")
	t.Setenv("CMOCKA_MESSAGE_OUTPUT", "")
	t.Setenv("CMOCKA_MAX_GROUPS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputFormats != FormatStandard {
		t.Fatalf("expected default STANDARD output, got %v", cfg.OutputFormats)
	}
	if cfg.MaxConcurrentGroups != 1 {
		t.Fatalf("expected default MaxConcurrentGroups 1, got %d", cfg.MaxConcurrentGroups)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CMOCKA_MESSAGE_OUTPUT", "tap,xml")
	t.Setenv("CMOCKA_MAX_GROUPS", "4")
	t.Setenv("CMOCKA_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputFormats != FormatTAP|FormatXML {
		t.Fatalf("expected TAP|XML, got %v", cfg.OutputFormats)
	}
	if cfg.MaxConcurrentGroups != 4 {
		t.Fatalf("expected MaxConcurrentGroups 4, got %d", cfg.MaxConcurrentGroups)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr set, got %q", cfg.RedisAddr)
	}
}

func TestOptionOverridesEnv(t *testing.T) {
	t.Setenv("CMOCKA_MAX_GROUPS", "4")

	cfg, err := Load(WithMaxConcurrentGroups(9))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrentGroups != 9 {
		t.Fatalf("expected programmatic override to win, got %d", cfg.MaxConcurrentGroups)
	}
}
