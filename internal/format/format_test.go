package format

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"config.yaml", YAML},
		{"dir/config.YML", YAML},
		{"settings.json", JSON},
		{".env", Dotenv},
		{".env.local", Dotenv},
		{"prod.env", Dotenv},
		{"app.toml", TOML},
	}
	for _, tt := range tests {
		got, err := Detect(tt.path)
		if err != nil {
			t.Errorf("Detect(%q) error = %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if _, err := Detect("config.ini"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Detect(config.ini) error = %v, want ErrUnsupported", err)
	}
}

func TestDecode(t *testing.T) {
	yamlDoc := []byte("name: app\ndatabase:\n  host: localhost\n  port: 5432\n")
	m, err := Decode(yamlDoc, YAML)
	if err != nil {
		t.Fatalf("Decode(YAML) error = %v", err)
	}
	db, ok := m["database"].(map[string]any)
	if !ok {
		t.Fatalf("Decode(YAML) database = %T, want map[string]any", m["database"])
	}
	if db["host"] != "localhost" || db["port"] != 5432 {
		t.Errorf("Decode(YAML) database = %v", db)
	}

	m, err = Decode([]byte(`{"a": "1", "b": {"c": true}}`), JSON)
	if err != nil {
		t.Fatalf("Decode(JSON) error = %v", err)
	}
	if m["a"] != "1" {
		t.Errorf("Decode(JSON) a = %v", m["a"])
	}

	m, err = Decode([]byte("# comment\nA=1\nB=\"quoted value\"\n"), Dotenv)
	if err != nil {
		t.Fatalf("Decode(Dotenv) error = %v", err)
	}
	if m["A"] != "1" || m["B"] != "quoted value" {
		t.Errorf("Decode(Dotenv) = %v", m)
	}

	m, err = Decode([]byte("title = \"app\"\n\n[database]\nhost = \"localhost\"\nport = 5432\n"), TOML)
	if err != nil {
		t.Fatalf("Decode(TOML) error = %v", err)
	}
	db, ok = m["database"].(map[string]any)
	if !ok {
		t.Fatalf("Decode(TOML) database = %T, want map[string]any", m["database"])
	}
	if m["title"] != "app" || db["host"] != "localhost" || db["port"] != int64(5432) {
		t.Errorf("Decode(TOML) = %v", m)
	}

	for _, f := range []Format{YAML, JSON, TOML, Dotenv} {
		m, err := Decode([]byte("  \n"), f)
		if err != nil || len(m) != 0 {
			t.Errorf("Decode(empty, %s) = %v, %v; want empty mapping", f, m, err)
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte("{not json"), JSON); err == nil {
		t.Error("Decode(JSON) accepted invalid input")
	}
	if _, err := Decode([]byte("a: [unterminated"), YAML); err == nil {
		t.Error("Decode(YAML) accepted invalid input")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := map[string]any{
		"API_KEY": "ENC(abc)",
		"PORT":    "8080",
	}

	for _, name := range []string{"out.yaml", "out.json", "out.toml", "out.env"} {
		path := filepath.Join(dir, name)
		f, _ := Detect(path)

		if err := Write(path, data, f); err != nil {
			t.Fatalf("Write(%s) error = %v", name, err)
		}

		got, gotFormat, err := Read(path)
		if err != nil {
			t.Fatalf("Read(%s) error = %v", name, err)
		}
		if gotFormat != f {
			t.Errorf("Read(%s) format = %v, want %v", name, gotFormat, f)
		}
		if got["API_KEY"] != "ENC(abc)" || got["PORT"] != "8080" {
			t.Errorf("Read(%s) = %v", name, got)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat(%s) error = %v", name, err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("%s permissions = %o, want 0600", name, info.Mode().Perm())
		}
	}
}

func TestEncodeDotenvRejectsNested(t *testing.T) {
	_, err := Encode(map[string]any{"db": map[string]any{"host": "x"}}, Dotenv)
	if err == nil {
		t.Error("Encode(Dotenv) accepted a nested mapping")
	}
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := WriteFileAtomic(path, []byte("a: 1\n"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
