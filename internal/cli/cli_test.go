package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chemio "github.com/matzehuels/chemlayout/pkg/io"
	"github.com/matzehuels/chemlayout/pkg/mol/moltest"
	"github.com/matzehuels/chemlayout/pkg/render"
)

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := configDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", appName); dir != want {
		t.Errorf("configDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirFromConfig(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.Config.Cache.Dir = "/var/cache/chem"
	dir, err := c.cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/var/cache/chem" {
		t.Errorf("cacheDir() = %q", dir)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing implicit", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(dir, "none.toml"), false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Cache.Backend != backendFile {
			t.Errorf("backend = %q, want %q", cfg.Cache.Backend, backendFile)
		}
	})

	t.Run("missing explicit", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(dir, "none.toml"), true); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})

	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, dir, "ok.toml", `
[pipeline]
bond_length = 1.5
formats = ["svg", "dot"]

[cache]
backend = "none"

[server]
addr = ":9000"
`)
		cfg, err := LoadConfig(path, true)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Pipeline.BondLength != 1.5 {
			t.Errorf("bond_length = %v", cfg.Pipeline.BondLength)
		}
		if len(cfg.Pipeline.Formats) != 2 {
			t.Errorf("formats = %v", cfg.Pipeline.Formats)
		}
		if cfg.Cache.Backend != backendNone || cfg.Server.Addr != ":9000" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	tests := []struct {
		name, content, want string
	}{
		{"unknown key", "[pipeline]\nbond_lenght = 1.5\n", "unknown keys"},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n", "unknown backend"},
		{"redis without url", "[cache]\nbackend = \"redis\"\n", "redis_url"},
		{"syntax", "[pipeline\n", "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".toml", tt.content)
			_, err := LoadConfig(path, true)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestConfigTemplates(t *testing.T) {
	lib, err := DefaultConfig().Templates()
	if err != nil || lib != nil {
		t.Errorf("Templates() = %v, %v; want nil, nil", lib, err)
	}
	cfg := Config{Catalog: filepath.Join(t.TempDir(), "missing.toml")}
	if _, err := cfg.Templates(); err == nil {
		t.Error("expected error for missing catalog")
	}
}

func TestParseFormats(t *testing.T) {
	got := parseFormats(" svg, ,png,")
	if len(got) != 2 || got[0] != "svg" || got[1] != "png" {
		t.Errorf("parseFormats() = %q", got)
	}
	if got := parseFormats(""); len(got) != 0 {
		t.Errorf("parseFormats(\"\") = %q", got)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, input string
		format        render.Format
		count         int
		want          string
	}{
		{"", "mols/caffeine.mol", render.FormatSVG, 1, "mols/caffeine.svg"},
		{"out.png", "caffeine.mol", render.FormatPNG, 1, "out.png"},
		{"out.svg", "caffeine.mol", render.FormatPNG, 2, "out.png"},
		{"out", "caffeine.mol", render.FormatDOT, 2, "out.dot"},
		{"out.gv.svg", "caffeine.mol", render.FormatSVG, 2, "out.svg"},
		{"", "caffeine.json", render.FormatGraphviz, 2, "caffeine.gv.svg"},
		{"out.v2", "caffeine.mol", render.FormatSVG, 2, "out.v2.svg"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.input, tt.format, tt.count); got != tt.want {
			t.Errorf("outputPath(%q, %q, %s, %d) = %q, want %q", tt.output, tt.input, tt.format, tt.count, got, tt.want)
		}
	}
}

func TestOutputFormatFor(t *testing.T) {
	tests := []struct {
		flag, output string
		want         chemio.Format
	}{
		{"", "", chemio.FormatJSON},
		{"", stdoutPath, chemio.FormatJSON},
		{"", "out.mol", chemio.FormatMol},
		{"MOL", "out.json", chemio.FormatMol},
	}
	for _, tt := range tests {
		got, err := outputFormatFor(tt.flag, tt.output)
		if err != nil || got != tt.want {
			t.Errorf("outputFormatFor(%q, %q) = %q, %v; want %q", tt.flag, tt.output, got, err, tt.want)
		}
	}
	if _, err := outputFormatFor("xyz", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLayoutOutputPath(t *testing.T) {
	if got := layoutOutputPath("dir/benzene.mol", chemio.FormatJSON); got != "dir/benzene.layout.json" {
		t.Errorf("layoutOutputPath() = %q", got)
	}
}

// =============================================================================
// Commands
// =============================================================================

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var out bytes.Buffer
	cmd := New(io.Discard, LogInfo).RootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func benzeneFile(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := chemio.WriteJSON(moltest.Benzene(), nil, &buf); err != nil {
		t.Fatal(err)
	}
	return writeFile(t, t.TempDir(), "benzene.json", buf.String())
}

func TestLayoutCommand(t *testing.T) {
	input := benzeneFile(t)
	if _, err := runCLI(t, "layout", "--no-cache", input); err != nil {
		t.Fatalf("layout: %v", err)
	}

	f, err := os.Open(layoutOutputPath(input, chemio.FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := chemio.ReadJSON(f)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !m.AllPlaced() {
		t.Error("layout output has unplaced atoms")
	}
}

func TestLayoutCommandStdout(t *testing.T) {
	input := benzeneFile(t)
	out, err := runCLI(t, "layout", "--no-cache", "-o", "-", "--output-format", "mol", input)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if !strings.Contains(out, "M  END") {
		t.Errorf("stdout is not a molfile:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	input := benzeneFile(t)
	base := filepath.Join(t.TempDir(), "drawing")
	if _, err := runCLI(t, "render", "--no-cache", "-f", "svg,dot", "-o", base, input); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, ext := range []string{".svg", ".dot"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			t.Fatalf("missing %s output: %v", ext, err)
		}
		if len(data) == 0 {
			t.Errorf("%s output is empty", ext)
		}
	}
}

func TestRenderCommandBadFormat(t *testing.T) {
	if _, err := runCLI(t, "render", "--no-cache", "-f", "pdf", benzeneFile(t)); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTemplatesCommand(t *testing.T) {
	if _, err := runCLI(t, "templates"); err != nil {
		t.Fatalf("templates: %v", err)
	}
}

func TestConfigFlag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "[cache]\nbackend = \"bogus\"\n")
	if _, err := runCLI(t, "--config", path, "templates"); err == nil {
		t.Error("expected config error")
	}
}
