package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GCODE_SCAN_LINES", "")
	t.Setenv("GRAMS_PER_METER", "")
	t.Setenv("AUTO_SELECT_CONFIDENCE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GCodeScanLines != 1000 {
		t.Fatalf("scan lines=%d", cfg.GCodeScanLines)
	}
	if cfg.GramsPerMeter != 3 {
		t.Fatalf("grams per meter=%v", cfg.GramsPerMeter)
	}
	if cfg.EmptyThresholdGrams != 50 {
		t.Fatalf("empty threshold=%v", cfg.EmptyThresholdGrams)
	}
	if cfg.AutoSelectConfidence != "low" {
		t.Fatalf("auto select=%q", cfg.AutoSelectConfidence)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GCODE_SCAN_LINES", "250")
	t.Setenv("GRAMS_PER_METER", "3.8")
	t.Setenv("IMAP_SECURE", "off")
	t.Setenv("AUTO_SELECT_CONFIDENCE", "MEDIUM")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GCodeScanLines != 250 || cfg.GramsPerMeter != 3.8 || cfg.IMAPSecure {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.AutoSelectConfidence != "medium" {
		t.Fatalf("auto select=%q", cfg.AutoSelectConfidence)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("AUTO_SELECT_CONFIDENCE", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported confidence")
	}

	t.Setenv("AUTO_SELECT_CONFIDENCE", "")
	t.Setenv("GCODE_SCAN_LINES", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative scan lines")
	}
}

func TestRequire(t *testing.T) {
	var cfg Config
	if err := cfg.Require("IMAP_HOST", " "); err == nil {
		t.Fatal("blank value accepted")
	}
	if err := cfg.Require("IMAP_HOST", "mail.example.com"); err != nil {
		t.Fatal(err)
	}
}
