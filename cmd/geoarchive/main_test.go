package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/geoarchive/geoarchive/internal/config"
	"github.com/geoarchive/geoarchive/internal/geokb"
	"github.com/geoarchive/geoarchive/internal/sciencebase"
	"github.com/geoarchive/geoarchive/internal/zotero"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("bad flag"), ExitError},
		{"config", fmt.Errorf("loading: %w", &config.Error{Service: "zotero", Missing: []string{"ZOTERO_API_KEY"}}), ExitConfigError},
		{"zotero api", fmt.Errorf("submitting page 2: %w", &zotero.APIError{StatusCode: 500}), ExitAPIError},
		{"zotero auth", fmt.Errorf("x: %w", zotero.ErrAuthError), ExitAPIError},
		{"sciencebase login", sciencebase.ErrNotLoggedIn, ExitAPIError},
		{"sciencebase api", &sciencebase.APIError{StatusCode: 502}, ExitAPIError},
		{"geokb", fmt.Errorf("querying places: %w", geokb.ErrQueryFailed), ExitAPIError},
		{"geokb network", fmt.Errorf("querying places: %w", geokb.ErrNetworkError), ExitAPIError},
		{"invalid config", fmt.Errorf("zotero: %w", &config.InvalidError{Service: "zotero", Setting: "library_type", Value: "team"}), ExitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// execute runs the root command with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	cfgFile := filepath.Join(t.TempDir(), "config.yml")
	rootCmd.SetArgs(append([]string{"--config", cfgFile}, args...))
	runErr := rootCmd.Execute()

	w.Close()
	out, _ := io.ReadAll(r)
	return string(out), runErr
}

func TestChecksumCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "checksum", "--type", "md5", path)
	if err != nil {
		t.Fatalf("checksum error = %v", err)
	}

	var resp ChecksumResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if resp.Checksum != "0cc175b9c0f1b6a831c399e269772661" || resp.Type != "md5" {
		t.Errorf("response = %+v", resp)
	}
}

func TestReportURLCommand(t *testing.T) {
	out, err := execute(t, "zotero", "report-url", "4530692", "ABC123")
	if err != nil {
		t.Fatalf("report-url error = %v", err)
	}

	var resp ReportURLResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if resp.URL != "https://w3id.org/usgs/z/4530692/ABC123" {
		t.Errorf("url = %q", resp.URL)
	}
}

func TestUpdateURLsCommand_MissingKey(t *testing.T) {
	t.Setenv(config.EnvZoteroAPIKey, "")

	_, err := execute(t, "zotero", "update-urls")
	if exitCode(err) != ExitConfigError {
		t.Errorf("update-urls without key: error = %v, exit %d", err, exitCode(err))
	}
}

func TestGeoKBLookupCommand_InvalidArg(t *testing.T) {
	if _, err := execute(t, "geokb", "lookup", "rivers"); err == nil {
		t.Error("geokb lookup rivers should fail")
	}
}
