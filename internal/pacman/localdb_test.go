package pacman

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const foreignDesc = `%NAME%
yay-bin

%VERSION%
12.3.5-1

%BASE%
yay-bin

%DESC%
Yet another yogurt. Pacman wrapper and AUR helper written in go.

%URL%
https://github.com/Jguer/yay

%ARCH%
x86_64

%VALIDATION%
none
`

const officialDesc = `%NAME%
bash

%VERSION%
5.2.026-2

%DESC%
The GNU Bourne Again shell

%URL%
https://www.gnu.org/software/bash/bash.html

%VALIDATION%
pgp
`

func TestParseDesc(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantOK  bool
		wantPkg LocalPackage
	}{
		{
			name:   "foreign package",
			input:  foreignDesc,
			wantOK: true,
			wantPkg: LocalPackage{
				Name:        "yay-bin",
				Version:     "12.3.5-1",
				Description: "Yet another yogurt. Pacman wrapper and AUR helper written in go.",
				URL:         "https://github.com/Jguer/yay",
				Validation:  "none",
			},
		},
		{
			name:   "signed package is not foreign",
			input:  officialDesc,
			wantOK: false,
		},
		{
			name:   "multi-line validation uses first value",
			input:  "%NAME%\nfoo\n\n%VERSION%\n1.0-1\n\n%VALIDATION%\nsha256\npgp\n",
			wantOK: false,
		},
		{
			name:   "truncated after marker",
			input:  "%NAME%\nfoo\n\n%VERSION%\n1.0-1\n\n%VALIDATION%\n",
			wantOK: false,
		},
		{
			name:   "missing name",
			input:  "%VERSION%\n1.0-1\n\n%VALIDATION%\nnone\n",
			wantOK: false,
		},
		{
			name:   "empty file",
			input:  "",
			wantOK: false,
		},
		{
			name:   "crlf line endings",
			input:  "%NAME%\r\nfoo\r\n%VERSION%\r\n1.0-1\r\n%VALIDATION%\r\nnone\r\n",
			wantOK: true,
			wantPkg: LocalPackage{
				Name:       "foo",
				Version:    "1.0-1",
				Validation: "none",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, ok, err := ParseDesc(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseDesc() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ParseDesc() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && pkg != tt.wantPkg {
				t.Errorf("ParseDesc() = %+v, want %+v", pkg, tt.wantPkg)
			}
		})
	}
}

func TestScanLocal(t *testing.T) {
	root := t.TempDir()
	writeDesc(t, root, "yay-bin-12.3.5-1", foreignDesc)
	writeDesc(t, root, "bash-5.2.026-2", officialDesc)
	writeDesc(t, root, "broken-1.0-1", "%NAME%\n")
	writeDesc(t, root, "aaa-tool-0.1-1", "%NAME%\naaa-tool\n%VERSION%\n0.1-1\n%VALIDATION%\nnone\n")

	// A package directory without a desc file is skipped.
	if err := os.MkdirAll(filepath.Join(root, "local", "nodesc-1.0-1"), 0o755); err != nil {
		t.Fatal(err)
	}
	// ALPM_DB_VERSION is a plain file in the local directory.
	if err := os.WriteFile(filepath.Join(root, "local", "ALPM_DB_VERSION"), []byte("9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	packages, err := ScanLocal(root)
	if err != nil {
		t.Fatalf("ScanLocal() error = %v", err)
	}

	if len(packages) != 2 {
		t.Fatalf("ScanLocal() returned %d packages, want 2: %+v", len(packages), packages)
	}
	if packages[0].Name != "aaa-tool" || packages[1].Name != "yay-bin" {
		t.Errorf("ScanLocal() names = [%s %s], want [aaa-tool yay-bin]", packages[0].Name, packages[1].Name)
	}
}

func TestScanLocal_MissingDatabase(t *testing.T) {
	if _, err := ScanLocal(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ScanLocal() expected error for missing database")
	}
}

func TestIndex(t *testing.T) {
	index := Index([]LocalPackage{
		{Name: "a", Version: "1"},
		{Name: "b", Version: "2"},
		{Name: "a", Version: "3"},
	})

	if len(index) != 2 {
		t.Fatalf("Index() len = %d, want 2", len(index))
	}
	if index["a"].Version != "3" {
		t.Errorf("Index()[a].Version = %q, want 3", index["a"].Version)
	}
}

func writeDesc(t *testing.T, root, dir, content string) {
	t.Helper()
	pkgDir := filepath.Join(root, "local", dir)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "desc"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
