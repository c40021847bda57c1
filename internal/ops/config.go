package ops

import (
	"encoding/json"
	"fmt"
	"os"

	"main/internal/model"
	"main/pkg/conn"
)

const (
	// DefaultPortfolioCount is the workload size when neither flag nor
	// config file provides one.
	DefaultPortfolioCount = 100
	// DefaultBegin is the first portfolio identifier.
	DefaultBegin = 1
	// DefaultCatalogSize is the bond catalog size used by seeding and by
	// the fine-grained run's size parameter.
	DefaultCatalogSize = 5000
	// DefaultBondsPerPortfolio is how many instruments each seeded
	// portfolio holds.
	DefaultBondsPerPortfolio = 50
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Database DatabaseConfig `json:"database"`
	Bench    BenchConfig    `json:"bench"`
}

// DatabaseConfig describes the document store connection.
type DatabaseConfig struct {
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	User     string            `json:"user"`
	Password string            `json:"password"`
	Database string            `json:"database"`
	SSLMode  string            `json:"sslMode"`
	Params   map[string]string `json:"params"`
}

// BenchConfig captures optional workload settings. Pointer fields
// distinguish "absent" from zero.
type BenchConfig struct {
	Portfolios  *int64 `json:"portfolios"`
	Begin       *int64 `json:"begin"`
	Seed        *int64 `json:"seed"`
	CatalogSize *int64 `json:"catalogSize"`
	Workers     *int   `json:"workers"`
	ReportPath  string `json:"reportPath"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Database conn.Option
	Bench    BenchSpec
}

// BenchSpec is the resolved workload definition.
type BenchSpec struct {
	Partition   model.Partition
	CatalogSize int64
	Workers     int
	ReportPath  string
}

// Load reads a JSON config file and resolves defaults. An empty path yields
// the default configuration.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, err
		}
	}
	spec, err := resolveBench(cfg.Bench)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Database: resolveDatabase(cfg.Database),
		Bench:    spec,
	}, nil
}

func resolveDatabase(cfg DatabaseConfig) conn.Option {
	return conn.Option{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
		Params:   cfg.Params,
	}
}

func resolveBench(cfg BenchConfig) (BenchSpec, error) {
	spec := BenchSpec{
		Partition: model.Partition{
			N:     DefaultPortfolioCount,
			Begin: DefaultBegin,
		},
		CatalogSize: DefaultCatalogSize,
		ReportPath:  cfg.ReportPath,
	}
	if cfg.Portfolios != nil {
		spec.Partition.N = *cfg.Portfolios
	}
	if cfg.Begin != nil {
		spec.Partition.Begin = *cfg.Begin
	}
	if cfg.Seed != nil {
		spec.Partition.Seed = *cfg.Seed
	}
	if cfg.CatalogSize != nil {
		spec.CatalogSize = *cfg.CatalogSize
	}
	if cfg.Workers != nil {
		spec.Workers = *cfg.Workers
	}
	return spec, validateBench(spec)
}

func validateBench(spec BenchSpec) error {
	if spec.Partition.N < 0 {
		return fmt.Errorf("portfolios must be >= 0, got %d", spec.Partition.N)
	}
	if spec.Partition.Begin <= 0 {
		return fmt.Errorf("begin must be > 0, got %d", spec.Partition.Begin)
	}
	if spec.CatalogSize <= 0 {
		return fmt.Errorf("catalogSize must be > 0, got %d", spec.CatalogSize)
	}
	if spec.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", spec.Workers)
	}
	return nil
}
