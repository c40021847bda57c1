package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)
	require.EqualValues(t, DefaultPortfolioCount, loaded.Bench.Partition.N)
	require.EqualValues(t, DefaultBegin, loaded.Bench.Partition.Begin)
	require.EqualValues(t, 0, loaded.Bench.Partition.Seed)
	require.EqualValues(t, DefaultCatalogSize, loaded.Bench.CatalogSize)
	require.Zero(t, loaded.Bench.Workers)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	content := `{
		"database": {"host": "db.internal", "port": 5433, "database": "pricing"},
		"bench": {"portfolios": 500, "begin": 10, "seed": 99, "catalogSize": 20000, "workers": 8, "reportPath": "out/run.json"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "db.internal", loaded.Database.Host)
	require.Equal(t, 5433, loaded.Database.Port)
	require.Equal(t, "pricing", loaded.Database.Database)
	require.EqualValues(t, 500, loaded.Bench.Partition.N)
	require.EqualValues(t, 10, loaded.Bench.Partition.Begin)
	require.EqualValues(t, 99, loaded.Bench.Partition.Seed)
	require.EqualValues(t, 20000, loaded.Bench.CatalogSize)
	require.Equal(t, 8, loaded.Bench.Workers)
	require.Equal(t, "out/run.json", loaded.Bench.ReportPath)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bench": {"seed": 3}}`), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 3, loaded.Bench.Partition.Seed)
	require.EqualValues(t, DefaultPortfolioCount, loaded.Bench.Partition.N)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"negative portfolios": `{"bench": {"portfolios": -1}}`,
		"zero begin":          `{"bench": {"begin": 0}}`,
		"zero catalog":        `{"bench": {"catalogSize": 0}}`,
		"negative workers":    `{"bench": {"workers": -2}}`,
	} {
		path := filepath.Join(t.TempDir(), "bench.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := Load(path)
		require.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
