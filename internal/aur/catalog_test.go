package aur

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

const sampleCatalog = `[
{"ID":1,"Name":"alpha","Version":"1.0-1","Description":"First","FirstSubmitted":100,"LastModified":200},
{"ID":2,"Name":"beta","Version":"2.0-1","Description":"Second","FirstSubmitted":150,"LastModified":250},
{"ID":3,"Name":"gamma","Version":"3.0-1","Description":"Third","FirstSubmitted":300,"LastModified":350}
]
`

func TestReader(t *testing.T) {
	installed := pacman.Index([]pacman.LocalPackage{
		{Name: "beta", Version: "1.5-1"},
		{Name: "not-in-catalog", Version: "0.1-1"},
	})

	r := NewReader(strings.NewReader(sampleCatalog), installed)

	var names []string
	for r.Next() {
		pkg := r.Package()
		names = append(names, pkg.Name)
		if pkg.Name == "beta" {
			assert.Equal(t, "1.5-1", pkg.LocalVersion)
			assert.Equal(t, StateRemoteAhead, pkg.State())
		} else {
			assert.False(t, pkg.Installed())
		}
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)

	// Exhausted readers stay exhausted.
	assert.False(t, r.Next())
	assert.Nil(t, r.Package())
}

func TestReader_Limit(t *testing.T) {
	r := NewReader(strings.NewReader(sampleCatalog), nil, WithLimit(2))

	count := 0
	for r.Next() {
		count++
	}
	require.NoError(t, r.Err())
	assert.Equal(t, 2, count)
}

func TestReader_MalformedLineAborts(t *testing.T) {
	catalog := `[
{"ID":1,"Name":"alpha","Version":"1.0-1"},
{"ID":2,"Name":"beta","Version":
{"ID":3,"Name":"gamma","Version":"3.0-1"}
]`

	r := NewReader(strings.NewReader(catalog), nil)

	require.True(t, r.Next())
	assert.Equal(t, "alpha", r.Package().Name)
	require.False(t, r.Next())

	var perr *ParseError
	require.True(t, errors.As(r.Err(), &perr))
	assert.Equal(t, 3, perr.Line)
	assert.Equal(t, MalformedLine, perr.Kind)
	assert.Contains(t, perr.Error(), "line 3")

	// The load does not resume after an error.
	assert.False(t, r.Next())
}

func TestReader_MissingNameAborts(t *testing.T) {
	r := NewReader(strings.NewReader(`{"ID":1,"Version":"1.0-1"},`), nil)

	require.False(t, r.Next())
	var perr *ParseError
	require.True(t, errors.As(r.Err(), &perr))
	assert.Equal(t, MissingRequiredField, perr.Kind)
	assert.Equal(t, 1, perr.Line)
}

func TestReader_SkipsShortLines(t *testing.T) {
	catalog := "[\n\n  \n{}\n" + `{"Name":"a"}` + "\n]"
	r := NewReader(strings.NewReader(catalog), nil)

	require.True(t, r.Next())
	assert.Equal(t, "a", r.Package().Name)
	assert.False(t, r.Next())
	require.NoError(t, r.Err())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages-meta-v1.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	packages, err := LoadFile(path, nil)
	require.NoError(t, err)
	assert.Len(t, packages, 3)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(sampleCatalog+"this line is not json at all\n"), 0o644))

	packages, err = LoadFile(bad, nil)
	require.Error(t, err)
	assert.Nil(t, packages)

	_, err = LoadFile(filepath.Join(dir, "missing.json"), nil)
	require.Error(t, err)
}
