package crypto

import (
	"errors"
	"sort"
	"testing"
)

func sampleConfig() map[string]any {
	return map[string]any{
		"DB_PASSWORD": "hunter2",
		"PORT":        8080,
		"DEBUG":       true,
		"database": map[string]any{
			"user": "admin",
			"pool": map[string]any{
				"size": 10,
				"name": "primary",
			},
		},
		"hosts": []any{"a.example.com", "b.example.com"},
	}
}

func TestEncryptAllDecryptAll(t *testing.T) {
	key, _ := GenerateKey()
	data := sampleConfig()

	encrypted, err := EncryptAll(data, key)
	if err != nil {
		t.Fatalf("EncryptAll() error = %v", err)
	}

	if !IsWrapped(encrypted["DB_PASSWORD"].(string)) {
		t.Errorf("EncryptAll() DB_PASSWORD = %v, want wrapped", encrypted["DB_PASSWORD"])
	}
	if encrypted["PORT"] != 8080 || encrypted["DEBUG"] != true {
		t.Error("EncryptAll() modified non-string values")
	}
	pool := encrypted["database"].(map[string]any)["pool"].(map[string]any)
	if !IsWrapped(pool["name"].(string)) {
		t.Errorf("EncryptAll() nested name = %v, want wrapped", pool["name"])
	}
	if !IsWrapped(encrypted["hosts"].([]any)[1].(string)) {
		t.Error("EncryptAll() did not encrypt list items")
	}

	// Input must not be mutated
	if data["DB_PASSWORD"] != "hunter2" {
		t.Error("EncryptAll() mutated its input")
	}

	decrypted, err := DecryptAll(encrypted, key)
	if err != nil {
		t.Fatalf("DecryptAll() error = %v", err)
	}
	if decrypted["DB_PASSWORD"] != "hunter2" {
		t.Errorf("DecryptAll() DB_PASSWORD = %v, want hunter2", decrypted["DB_PASSWORD"])
	}
	pool = decrypted["database"].(map[string]any)["pool"].(map[string]any)
	if pool["name"] != "primary" || pool["size"] != 10 {
		t.Errorf("DecryptAll() pool = %v", pool)
	}
}

func TestEncryptAllSkipsWrapped(t *testing.T) {
	key, _ := GenerateKey()
	literal, _ := EncryptValue("x", key)

	out, err := EncryptAll(map[string]any{"A": literal}, key)
	if err != nil {
		t.Fatalf("EncryptAll() error = %v", err)
	}
	if out["A"] != literal {
		t.Error("EncryptAll() double-encrypted an already wrapped value")
	}
}

func TestDecryptAllReportsEveryField(t *testing.T) {
	key, _ := GenerateKey()
	other, _ := GenerateKey()
	good, _ := EncryptValue("ok", key)
	bad1, _ := EncryptValue("nope", other)
	bad2, _ := EncryptValue("nope", other)

	data := map[string]any{
		"GOOD":   good,
		"BAD":    bad1,
		"nested": map[string]any{"BAD": bad2},
	}

	out, err := DecryptAll(data, key)
	if err == nil {
		t.Fatal("DecryptAll() error = nil, want failure")
	}
	if out != nil {
		t.Errorf("DecryptAll() returned a partial mapping: %v", out)
	}

	var paths []string
	for _, fe := range FieldErrors(err) {
		if !errors.Is(fe, ErrInvalidCiphertext) {
			t.Errorf("field %s error = %v, want ErrInvalidCiphertext", fe.Path, fe.Err)
		}
		paths = append(paths, fe.Path)
	}
	sort.Strings(paths)
	if len(paths) != 2 || paths[0] != "BAD" || paths[1] != "nested.BAD" {
		t.Errorf("FieldErrors() paths = %v, want [BAD nested.BAD]", paths)
	}
}

func TestMigrate(t *testing.T) {
	oldKey, _ := GenerateKey()
	newKey, _ := GenerateKey()

	a, _ := EncryptValue("alpha", oldKey)
	b, _ := EncryptValue("beta", oldKey)
	data := map[string]any{
		"A":      a,
		"PLAIN":  "untouched",
		"nested": map[string]any{"B": b},
	}

	migrated, err := Migrate(data, oldKey, newKey)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if migrated["PLAIN"] != "untouched" {
		t.Errorf("Migrate() PLAIN = %v, want untouched", migrated["PLAIN"])
	}

	got, err := DecryptValue(migrated["A"].(string), newKey)
	if err != nil || got != "alpha" {
		t.Errorf("DecryptValue(new key) = %q, %v; want alpha", got, err)
	}
	got, err = DecryptValue(migrated["nested"].(map[string]any)["B"].(string), newKey)
	if err != nil || got != "beta" {
		t.Errorf("DecryptValue(new key) nested = %q, %v; want beta", got, err)
	}

	if _, err := DecryptValue(migrated["A"].(string), oldKey); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("migrated value still decrypts with old key: %v", err)
	}
}

func TestMigrateIsAllOrNothing(t *testing.T) {
	oldKey, _ := GenerateKey()
	newKey, _ := GenerateKey()
	stranger, _ := GenerateKey()

	ok1, _ := EncryptValue("one", oldKey)
	ok2, _ := EncryptValue("two", oldKey)
	broken, _ := EncryptValue("three", stranger)

	data := map[string]any{"ONE": ok1, "TWO": ok2, "THREE": broken}

	migrated, err := Migrate(data, oldKey, newKey)
	if err == nil {
		t.Fatal("Migrate() error = nil, want failure")
	}
	if migrated != nil {
		t.Fatalf("Migrate() returned a partially migrated mapping: %v", migrated)
	}

	fields := FieldErrors(err)
	if len(fields) != 1 || fields[0].Path != "THREE" {
		t.Errorf("FieldErrors() = %v, want one entry for THREE", fields)
	}

	// The source mapping is still fully readable with the old key
	for _, k := range []string{"ONE", "TWO"} {
		if _, err := DecryptValue(data[k].(string), oldKey); err != nil {
			t.Errorf("source field %s no longer decrypts with old key: %v", k, err)
		}
	}
}

func TestMigrateMissingKey(t *testing.T) {
	key, _ := GenerateKey()
	if _, err := Migrate(map[string]any{}, key, nil); !errors.Is(err, ErrKeyMissing) {
		t.Errorf("Migrate() error = %v, want ErrKeyMissing", err)
	}
}
