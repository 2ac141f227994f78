package main

import (
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/athan/internal/config"
)

func buildBinary(t *testing.T, args ...string) string {
	t.Helper()
	binPath := t.TempDir() + "/tmux-prayer-times"
	cmd := exec.Command("go", append(append([]string{"build"}, args...), "-o", binPath, ".")...)
	cmd.Dir = "."
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

// TestVersionFlag verifies that --version prints the version string.
func TestVersionFlag(t *testing.T) {
	binPath := buildBinary(t, "-ldflags", "-X main.version=v1.2.3-test")

	out, err := exec.Command(binPath, "--version").Output()
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}

	got := strings.TrimSpace(string(out))
	want := "tmux-prayer-times v1.2.3-test"
	if got != want {
		t.Errorf("--version = %q, want %q", got, want)
	}
}

// TestVersionFlag_Dev verifies the default "dev" version when no ldflags.
func TestVersionFlag_Dev(t *testing.T) {
	binPath := buildBinary(t)

	out, err := exec.Command(binPath, "--version").Output()
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}

	got := strings.TrimSpace(string(out))
	if got != "tmux-prayer-times dev" {
		t.Errorf("--version output unexpected: %q", got)
	}
}

// TestListMethodsFlag verifies that --list-methods prints the built-in methods.
func TestListMethodsFlag(t *testing.T) {
	binPath := buildBinary(t)

	out, err := exec.Command(binPath, "--list-methods").Output()
	if err != nil {
		t.Fatalf("--list-methods failed: %v", err)
	}

	output := string(out)
	for _, m := range []string{"ISNA (default)", "MWL", "Umm al-Qura", "Jafari", "Karachi", "Egypt", "Dubai"} {
		if !strings.Contains(output, m) {
			t.Errorf("--list-methods output missing %q", m)
		}
	}
}

// TestCoordinates_PrintsNextPrayer runs fully offline with explicit coordinates.
func TestCoordinates_PrintsNextPrayer(t *testing.T) {
	binPath := buildBinary(t)

	cmd := exec.Command(binPath,
		"--latitude", "21.4225", "--longitude", "39.8262",
		"--timezone", "Asia/Riyadh",
		"--cache-dir", t.TempDir())
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// name-and-time is the default format.
	re := regexp.MustCompile(`^(Fajr|Sunrise|Dhuhr|Asr|Maghrib|Isha) \d{2}:\d{2}( \*)?$`)
	if !re.MatchString(string(out)) {
		t.Errorf("output = %q, want \"<Prayer> HH:MM\"", out)
	}
}

// TestInvalidTimezone_ExitCode verifies that a bad flag value exits non-zero.
func TestInvalidTimezone_ExitCode(t *testing.T) {
	binPath := buildBinary(t)

	cmd := exec.Command(binPath, "--latitude", "1", "--longitude", "2", "--timezone", "Mars/Olympus")
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())
	err := cmd.Run()
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() == 0 {
		t.Error("expected non-zero exit code")
	}
}

func newTestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Float64("latitude", 0, "")
	fs.Float64("longitude", 0, "")
	fs.Int("method", -1, "")
	fs.Int("offset", 0, "")
	fs.String("time-format", "24h", "")
	fs.String("format", "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestSettings_FlagsOverrideFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	saved := &config.Config{}
	if err := saved.Set("method", "4"); err != nil {
		t.Fatal(err)
	}
	if err := saved.Set("time_format", "12h"); err != nil {
		t.Fatal(err)
	}
	if err := saved.Save(); err != nil {
		t.Fatal(err)
	}

	cfg, err := settings(newTestFlags(t, "--latitude", "51.5", "--longitude", "-0.12", "--offset", "3", "--format", "full"))
	if err != nil {
		t.Fatalf("settings() error: %v", err)
	}

	if cfg.MethodOrDefault(-1) != 4 {
		t.Errorf("method = %d, want 4 from file", cfg.MethodOrDefault(-1))
	}
	if cfg.TimeFormat != "12h" {
		t.Errorf("time_format = %q, want 12h from file", cfg.TimeFormat)
	}
	if !cfg.HasCoordinates() {
		t.Fatal("expected coordinates from flags")
	}
	if loc := cfg.Location(); loc.Latitude != 51.5 || loc.Longitude != -0.12 {
		t.Errorf("location = %v, %v", loc.Latitude, loc.Longitude)
	}
	if cfg.OffsetOrZero() != 3 {
		t.Errorf("offset = %d, want 3", cfg.OffsetOrZero())
	}
}

func TestSettings_InvalidFlag(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := settings(newTestFlags(t, "--latitude", "120"))
	if err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
	if !strings.Contains(err.Error(), "--latitude") {
		t.Errorf("error %q does not name the flag", err)
	}
}
