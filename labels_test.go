package segtrack

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadClassNames(t *testing.T) {

	file := filepath.Join(t.TempDir(), "classes.txt")

	err := os.WriteFile(file, []byte("person\ncar\n  bus  \n"), 0644)

	if err != nil {
		t.Fatalf("failed to write class file: %v", err)
	}

	names, err := LoadClassNames(file)

	if err != nil {
		t.Fatalf("LoadClassNames failed: %v", err)
	}

	want := []string{"person", "car", "bus"}

	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}

	for i, name := range want {
		if names[i] != name {
			t.Errorf("name %d: expected %q, got %q", i, name, names[i])
		}
	}
}

func TestLoadClassNamesMissingFile(t *testing.T) {

	_, err := LoadClassNames(filepath.Join(t.TempDir(), "missing.txt"))

	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
