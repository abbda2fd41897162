package db

import (
	"strings"
	"testing"
)

func TestGetMigrationsPath(t *testing.T) {
	// Running from the package directory, ./migrations exists.
	path, err := getMigrationsPath()
	if err != nil {
		t.Fatalf("getMigrationsPath: %v", err)
	}
	if !strings.HasPrefix(path, "file://") {
		t.Errorf("path %q should carry the file:// scheme", path)
	}
	if !strings.Contains(path, "migrations") {
		t.Errorf("path %q should point at a migrations directory", path)
	}
}
