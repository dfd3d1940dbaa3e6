package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/auth"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	rootCmd := newRootCommand()
	for _, name := range []string{"sweep", "purge", "issue-cleanup-token", "lambda"} {
		found, _, err := rootCmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Fatalf("expected subcommand %s, got %v (%v)", name, found, err)
		}
	}
	purge, _, _ := rootCmd.Find([]string{"purge"})
	if purge.Flags().Lookup("retention-days") == nil {
		t.Fatalf("expected purge to expose --retention-days")
	}
}

func TestIssueCleanupTokenPrintsValidToken(t *testing.T) {
	t.Setenv("PASTEBIN_CLEANUP_SECRET", "cron-secret")

	rootCmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"issue-cleanup-token", "--ttl", "5m", "--subject", "nightly"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token := strings.TrimSpace(stdout.String())
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte("cron-secret"), TokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("unexpected issuer error: %v", err)
	}
	subject, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected printed token to validate: %v", err)
	}
	if subject != "nightly" {
		t.Fatalf("unexpected subject %s", subject)
	}
	if !strings.Contains(stderr.String(), "expires at") {
		t.Fatalf("expected expiry notice on stderr, got %q", stderr.String())
	}
}

func TestExplicitConfigFileErrorsAreReported(t *testing.T) {
	malformed := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(malformed, []byte("cleanup: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	testCases := []struct {
		name string
		path string
	}{
		{name: "missing", path: filepath.Join(t.TempDir(), "absent.yaml")},
		{name: "malformed", path: malformed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)

			rootCmd := newRootCommand()
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetErr(&bytes.Buffer{})
			rootCmd.SetArgs([]string{"issue-cleanup-token", "--config", testCase.path})

			err := rootCmd.Execute()
			if err == nil {
				t.Fatalf("expected config error for %s", testCase.path)
			}
			if !strings.Contains(err.Error(), testCase.path) {
				t.Fatalf("expected error to name the config file, got %v", err)
			}
		})
	}
}

func TestExplicitConfigFileIsApplied(t *testing.T) {
	t.Cleanup(viper.Reset)

	configPath := filepath.Join(t.TempDir(), "pastebin.yaml")
	if err := os.WriteFile(configPath, []byte("cleanup:\n  secret: file-secret\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	rootCmd := newRootCommand()
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"issue-cleanup-token", "--config", configPath})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte("file-secret"), TokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("unexpected issuer error: %v", err)
	}
	if _, err := issuer.ValidateToken(strings.TrimSpace(stdout.String())); err != nil {
		t.Fatalf("expected token signed with the file secret: %v", err)
	}
}
