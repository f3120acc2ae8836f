package questboard

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("questboard", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("QUESTBOARD_PORT", "9005")

	fs := flag.NewFlagSet("questboard", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9005 {
		t.Fatalf("expected env port 9005, got %d", cfg.Port)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("QUESTBOARD_PORT", "9005")

	fs := flag.NewFlagSet("questboard", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9010"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9010 {
		t.Fatalf("expected port override 9010, got %d", cfg.Port)
	}
}

func TestParseConfigBadEnv(t *testing.T) {
	t.Setenv("QUESTBOARD_PORT", "not-a-number")

	fs := flag.NewFlagSet("questboard", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error for malformed port env")
	}
}
