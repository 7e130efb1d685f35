package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sheetwise/sheetwise/internal/classify"
	cfgpkg "github.com/sheetwise/sheetwise/internal/config"
)

func TestDefaultOutputPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"sales.xlsx", "sales_transformed.csv"},
		{"data/report.csv", "data/report_transformed.csv"},
		{"noext", "noext_transformed.csv"},
	}
	for _, c := range cases {
		if got := defaultOutputPath(c.in); got != c.want {
			t.Errorf("defaultOutputPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMask(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"short", "******"},
		{"sk-or-v1-abcdef", "sk-****def"},
	}
	for _, c := range cases {
		if got := mask(c.in); got != c.want {
			t.Errorf("mask(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func resetTransformFlags(t *testing.T) {
	t.Helper()
	savedCfg := cfg
	savedModel, savedSimple, savedComplex := trModel, trSimpleModel, trComplexModel
	savedMax, savedTemp := trMaxTokens, trTemp
	t.Cleanup(func() {
		cfg = savedCfg
		trModel, trSimpleModel, trComplexModel = savedModel, savedSimple, savedComplex
		trMaxTokens, trTemp = savedMax, savedTemp
	})
	trModel, trSimpleModel, trComplexModel = "", "", ""
	trMaxTokens, trTemp = 0, 0
}

func TestPlanTimeoutResolution(t *testing.T) {
	resetTransformFlags(t)
	savedTimeout := trTimeoutSec
	t.Cleanup(func() { trTimeoutSec = savedTimeout })

	cfg = &cfgpkg.Global{PlanTimeoutSec: 30}
	trTimeoutSec = 90

	if got := planTimeout(false); got != 30*time.Second {
		t.Fatalf("config timeout should apply when the flag is unset: %v", got)
	}
	trTimeoutSec = 15
	if got := planTimeout(true); got != 15*time.Second {
		t.Fatalf("explicit flag should win over config: %v", got)
	}
	cfg = &cfgpkg.Global{}
	trTimeoutSec = 90
	if got := planTimeout(false); got != 90*time.Second {
		t.Fatalf("flag default should apply when config is zero: %v", got)
	}
}

func TestTierSettingsFromConfig(t *testing.T) {
	resetTransformFlags(t)
	cfg = &cfgpkg.Global{
		SimpleModel: "cheap", SimpleMaxTokens: 256, SimpleTemperature: 0,
		ComplexModel: "big", ComplexMaxTokens: 1024, ComplexTemperature: 0.2,
	}

	model, maxTokens, temp := tierSettings(classify.Simple, "openrouter")
	if model != "cheap" || maxTokens != 256 || temp != 0 {
		t.Fatalf("simple tier = %q, %d, %v", model, maxTokens, temp)
	}
	model, maxTokens, temp = tierSettings(classify.Complex, "openrouter")
	if model != "big" || maxTokens != 1024 || temp != 0.2 {
		t.Fatalf("complex tier = %q, %d, %v", model, maxTokens, temp)
	}
}

func TestTierSettingsFlagOverrides(t *testing.T) {
	resetTransformFlags(t)
	cfg = &cfgpkg.Global{SimpleModel: "cheap", ComplexModel: "big", SimpleMaxTokens: 256}

	trSimpleModel = "flag-simple"
	if model, _, _ := tierSettings(classify.Simple, "openrouter"); model != "flag-simple" {
		t.Fatalf("simple override = %q", model)
	}
	if model, _, _ := tierSettings(classify.Complex, "openrouter"); model != "big" {
		t.Fatalf("simple override leaked into complex tier: %q", model)
	}

	trModel = "flag-any"
	if model, _, _ := tierSettings(classify.Complex, "openrouter"); model != "flag-any" {
		t.Fatalf("--model must win: %q", model)
	}

	trMaxTokens = 9000
	trTemp = 0.7
	_, maxTokens, temp := tierSettings(classify.Simple, "openrouter")
	if maxTokens != 9000 || temp != 0.7 {
		t.Fatalf("numeric overrides = %d, %v", maxTokens, temp)
	}
}

func TestTierSettingsFallsBackToRecommendation(t *testing.T) {
	resetTransformFlags(t)
	cfg = &cfgpkg.Global{}

	model, maxTokens, _ := tierSettings(classify.Simple, "openrouter")
	if model == "" {
		t.Fatalf("expected a recommended model for an empty config")
	}
	if maxTokens != 2048 {
		t.Fatalf("maxTokens = %d, want default 2048", maxTokens)
	}
}

func TestLoadDatasetByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(csvPath, []byte("Name,Score\nalice,10\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, err := loadDataset(csvPath)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if d.NumRows() != 1 || d.NumCols() != 2 {
		t.Fatalf("csv dims = %dx%d", d.NumRows(), d.NumCols())
	}

	tsvPath := filepath.Join(dir, "in.tsv")
	if err := os.WriteFile(tsvPath, []byte("Name\tScore\nalice\t10\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, err = loadDataset(tsvPath)
	if err != nil {
		t.Fatalf("tsv: %v", err)
	}
	if d.NumCols() != 2 {
		t.Fatalf("tsv not split on tabs: %v", d.ColumnNames())
	}

	if _, err := loadDataset(filepath.Join(dir, "in.parquet")); err == nil {
		t.Fatalf("unsupported extension should fail")
	}
}
