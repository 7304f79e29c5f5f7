package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/zalando/go-keyring"

	"github.com/russellromney/confidant/internal/crypto"
)

func TestNewWithDir(t *testing.T) {
	customDir := "/tmp/test-confidant"
	cfg := NewWithDir(customDir)

	if cfg.Dir != customDir {
		t.Errorf("NewWithDir() Dir = %v, want %v", cfg.Dir, customDir)
	}
	if cfg.MetaPath != filepath.Join(customDir, MetaFileName) {
		t.Errorf("NewWithDir() MetaPath = %v", cfg.MetaPath)
	}
	if cfg.JournalPath != filepath.Join(customDir, JournalFileName) {
		t.Errorf("NewWithDir() JournalPath = %v", cfg.JournalPath)
	}

	if got := NewWithDir("").Dir; got != DefaultDirName {
		t.Errorf("NewWithDir(\"\") Dir = %v, want %v", got, DefaultDirName)
	}
}

func TestNewFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIDANT_DIR", dir)
	t.Setenv("CONFIDANT_LOG_LEVEL", "debug")

	cfg, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("New() Dir = %v, want %v", cfg.Dir, dir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("New() LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestNewFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CONFIDANT_DIR", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dir", "", "")
	flags.String("log-level", "", "")
	if err := flags.Parse([]string{"--dir", "/from/flag"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := New(flags)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Dir != "/from/flag" {
		t.Errorf("New() Dir = %v, want /from/flag", cfg.Dir)
	}
}

func TestEnsureDirAndExists(t *testing.T) {
	testDir := filepath.Join(t.TempDir(), "project", DefaultDirName)
	cfg := NewWithDir(testDir)

	if err := cfg.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(testDir)
	if err != nil {
		t.Fatalf("Directory not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("Directory permissions = %o, want 0700", perm)
	}

	if cfg.Exists() {
		t.Error("Exists() = true, want false (no meta file)")
	}
	if err := os.WriteFile(cfg.MetaPath, []byte("project_name: x\n"), 0600); err != nil {
		t.Fatalf("Failed to write meta: %v", err)
	}
	if !cfg.Exists() {
		t.Error("Exists() = false, want true")
	}
}

func TestMasterKey(t *testing.T) {
	keyring.MockInit()

	key, _ := crypto.GenerateKey()
	t.Setenv(MasterKeyEnv, crypto.EncodeKey(key))

	cfg, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := cfg.MasterKey()()
	if err != nil {
		t.Fatalf("MasterKey() error = %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("MasterKey() returned a different key")
	}
}

func TestMasterKeyMissing(t *testing.T) {
	keyring.MockInit()
	t.Setenv(MasterKeyEnv, "")

	cfg, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg.KeychainAccount = "confidant-test-missing"

	if _, err := cfg.MasterKey()(); !errors.Is(err, crypto.ErrKeyMissing) {
		t.Errorf("MasterKey() error = %v, want ErrKeyMissing", err)
	}
}

func TestMasterKeyFromKeychain(t *testing.T) {
	keyring.MockInit()
	t.Setenv(MasterKeyEnv, "")

	key, _ := crypto.GenerateKey()
	if err := crypto.StoreKeyInKeychain("confidant-test", crypto.EncodeKey(key)); err != nil {
		t.Fatalf("StoreKeyInKeychain() error = %v", err)
	}

	cfg := NewWithDir(t.TempDir())
	cfg.KeychainAccount = "confidant-test"

	got, err := cfg.MasterKey()()
	if err != nil {
		t.Fatalf("MasterKey() error = %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("MasterKey() returned a different key")
	}
}
