package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stacklok/jobtracker/internal/api"
	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/auth"
	"github.com/stacklok/jobtracker/internal/service/inmemory"
)

// newTestSandbox serves an in-memory service and returns its API base URL.
func newTestSandbox(t *testing.T) string {
	t.Helper()
	issuer, err := auth.NewIssuer(bytes.Repeat([]byte("k"), 32), "jobtracker-test")
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewServer(inmemory.New(inmemory.WithPasswordCost(bcrypt.MinCost)), issuer))
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

// writeConfig writes a configuration that stores the token in a temp file.
func writeConfig(t *testing.T, baseURL string) (configPath, tokenPath string) {
	t.Helper()
	dir := t.TempDir()
	tokenPath = filepath.Join(dir, "token")
	configPath = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`stateDir: %s
api:
  baseURL: %s
  timeout: 5s
credentials:
  source: file
  file: %s
`, filepath.Join(dir, "boards"), baseURL, tokenPath)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath, tokenPath
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&rootOptions{v: viper.New()})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_Workflow(t *testing.T) {
	t.Parallel()

	configPath, tokenPath := writeConfig(t, newTestSandbox(t))

	_, err := run(t, configPath, "board")
	require.ErrorIs(t, err, applications.ErrAuth)
	assert.Contains(t, err.Error(), "jobtracker login")

	out, err := run(t, configPath, "register",
		"--email", "ada@example.com", "--first-name", "Ada", "--full-name", "Ada Lovelace",
		"--password", "correct-horse")
	require.NoError(t, err)
	assert.Contains(t, out, "Account ada@example.com created")

	out, err = run(t, configPath, "login", "--email", "ada@example.com", "--password", "correct-horse")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ada Lovelace")
	assert.Contains(t, out, "Token expires")
	assert.FileExists(t, tokenPath)

	out, err = run(t, configPath, "add",
		"--company", "Initech", "--title", "Engineer", "--contract-type", "Full-time",
		"--salary", "100000", "--currency", "EUR", "--salary-type", "Yearly", "--employment-type", "Permanent",
		"--applied-on", "2026-03-02")
	require.NoError(t, err)
	match := regexp.MustCompile(`Created (\S+): Engineer at Initech \[Applied\]`).FindStringSubmatch(out)
	require.Len(t, match, 2, out)
	id := match[1]

	out, err = run(t, configPath, "add", "--company", "Globex", "--title", "Analyst")
	require.NoError(t, err)
	match = regexp.MustCompile(`Created (\S+): Analyst at Globex`).FindStringSubmatch(out)
	require.Len(t, match, 2, out)
	other := match[1]

	out, err = run(t, configPath, "board")
	require.NoError(t, err)
	assert.Contains(t, out, "Full-time")
	assert.Less(t, strings.Index(out, "Initech"), strings.Index(out, "Globex"))

	_, err = run(t, configPath, "reorder", "applied", other)
	require.NoError(t, err)
	out, err = run(t, configPath, "board", "--stage", "applied")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Globex"), strings.Index(out, "Initech"), "saved order is restored")

	_, err = run(t, configPath, "reorder", "offer", other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not in stage Offer")

	out, err = run(t, configPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Complete")

	out, err = run(t, configPath, "move", id, "offer")
	require.NoError(t, err)
	assert.Contains(t, out, "[Offer]")

	out, err = run(t, configPath, "update", id, "--notes", "Second round", "--location", "Berlin")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated "+id)

	out, err = run(t, configPath, "board", "--stage", "Offer")
	require.NoError(t, err)
	assert.Contains(t, out, "Berlin")
	assert.NotContains(t, out, "Applied")

	out, err = run(t, configPath, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Offer")
	assert.Contains(t, out, time.Now().UTC().Format("2006-01"))

	out, err = run(t, configPath, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	_, err = run(t, configPath, "move", id, "Rejected")
	require.ErrorIs(t, err, applications.ErrNotFound)

	out, err = run(t, configPath, "change-password", "--old-password", "correct-horse", "--new-password", "battery-staple")
	require.NoError(t, err)
	assert.Contains(t, out, "Password changed")

	_, err = run(t, configPath, "login", "--email", "ada@example.com", "--password", "correct-horse")
	require.ErrorIs(t, err, applications.ErrAuth)

	out, err = run(t, configPath, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = run(t, configPath, "board")
	require.ErrorIs(t, err, applications.ErrAuth)
}

func TestCommands_AddValidation(t *testing.T) {
	t.Parallel()

	configPath, _ := writeConfig(t, newTestSandbox(t))
	_, err := run(t, configPath, "register", "--email", "bob@example.com", "--first-name", "Bob", "--password", "hunter2hunter2")
	require.NoError(t, err)
	_, err = run(t, configPath, "login", "--email", "bob@example.com", "--password", "hunter2hunter2")
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing title", args: []string{"--company", "Initech"}, wantErr: `required flag(s) "title" not set`},
		{name: "unknown stage", args: []string{"--company", "Initech", "--title", "Engineer", "--stage", "Hired"}, wantErr: "Hired"},
		{name: "unknown contract type", args: []string{"--company", "Initech", "--title", "Engineer", "--contract-type", "Gig"}, wantErr: "known: Full-time"},
		{name: "bad date", args: []string{"--company", "Initech", "--title", "Engineer", "--applied-on", "yesterday"}, wantErr: "invalid --applied-on"},
		{name: "partial financial information", args: []string{"--company", "Initech", "--title", "Engineer", "--salary", "100"}, wantErr: "financialInformation.currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, configPath, append([]string{"add"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	configPath, _ := writeConfig(t, newTestSandbox(t))

	out, err := run(t, configPath, "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)

	out, err = run(t, configPath, "version", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "jobtracker ")
	assert.Contains(t, out, "service ")
}

func TestBaseURLFlag(t *testing.T) {
	t.Parallel()

	configPath, _ := writeConfig(t, "http://127.0.0.1:1/api")
	_, err := run(t, configPath, "--base-url", newTestSandbox(t), "version", "--check")
	require.NoError(t, err)

	_, err = run(t, configPath, "--base-url", "ftp://example.com", "board")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestExplain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		hint string
	}{
		{name: "nil", err: nil},
		{name: "auth", err: &applications.Error{Kind: applications.KindAuth}, hint: "jobtracker login"},
		{name: "network", err: &applications.Error{Kind: applications.KindNetwork}, hint: "jobtracker sandbox"},
		{name: "other", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := explain(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			require.ErrorIs(t, got, tt.err)
			if tt.hint != "" {
				assert.Contains(t, got.Error(), tt.hint)
			} else {
				assert.Equal(t, tt.err, got)
			}
		})
	}
}

func TestReadLine_SharedReader(t *testing.T) {
	t.Parallel()

	r := strings.NewReader("old-secret\r\nnew-secret\n")
	first, err := readLine(r)
	require.NoError(t, err)
	second, err := readLine(r)
	require.NoError(t, err)
	third, err := readLine(r)
	require.NoError(t, err)

	assert.Equal(t, "old-secret", first)
	assert.Equal(t, "new-secret", second)
	assert.Empty(t, third)
}
