package seed

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model"
)

// Tier describes one coupon/frequency/tenor combination in the catalog spec.
// Coupon and tenor are carried as exact decimal strings in JSON and resolved
// once at generator construction.
type Tier struct {
	Coupon    decimal.Decimal `json:"coupon"`
	Frequency int             `json:"frequency"`
	Tenor     decimal.Decimal `json:"tenor"`
}

type tier struct {
	coupon    float64
	frequency int
	tenor     float64
}

// Generator derives bond terms and portfolio holdings deterministically from
// identifiers, so re-seeding a store always reproduces the same catalog.
type Generator struct {
	tiers    []tier
	bondsPer int
}

const defaultTiersJSON = `[
	{"coupon": "5.0", "frequency": 2, "tenor": "10"},
	{"coupon": "3.25", "frequency": 1, "tenor": "5"},
	{"coupon": "4.5", "frequency": 2, "tenor": "7"},
	{"coupon": "6.0", "frequency": 4, "tenor": "30"},
	{"coupon": "2.75", "frequency": 1, "tenor": "2"}
]`

// DefaultTiers returns the standard benchmark catalog tiers.
func DefaultTiers() []Tier {
	var tiers []Tier
	if err := json.Unmarshal([]byte(defaultTiersJSON), &tiers); err != nil {
		panic(err)
	}
	return tiers
}

// LoadTiers reads a tier spec JSON file.
func LoadTiers(path string) ([]Tier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read tiers")
	}
	var tiers []Tier
	if err := json.Unmarshal(data, &tiers); err != nil {
		return nil, errors.Wrap(err, "decode tiers")
	}
	return tiers, nil
}

// NewGenerator resolves the tier spec and validates it.
func NewGenerator(tiers []Tier, bondsPerPortfolio int) (*Generator, error) {
	if len(tiers) == 0 {
		return nil, errors.New("no catalog tiers")
	}
	if bondsPerPortfolio <= 0 {
		return nil, errors.Errorf("bonds per portfolio must be > 0, got %d", bondsPerPortfolio)
	}
	resolved := make([]tier, 0, len(tiers))
	for i, t := range tiers {
		coupon, err := decimalToFloat(t.Coupon)
		if err != nil {
			return nil, errors.Wrapf(err, "tier %d coupon", i)
		}
		tenor, err := decimalToFloat(t.Tenor)
		if err != nil {
			return nil, errors.Wrapf(err, "tier %d tenor", i)
		}
		if coupon < 0 || tenor <= 0 || t.Frequency <= 0 {
			return nil, errors.Errorf("tier %d out of range: coupon=%v frequency=%d tenor=%v", i, coupon, t.Frequency, tenor)
		}
		resolved = append(resolved, tier{coupon: coupon, frequency: t.Frequency, tenor: tenor})
	}
	return &Generator{tiers: resolved, bondsPer: bondsPerPortfolio}, nil
}

// decimalToFloat resolves a decimal carrier to the float64 the valuation
// model works in.
func decimalToFloat(d decimal.Decimal) (float64, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return 0, errors.Wrap(err, "marshal decimal")
	}
	text := strings.Trim(string(data), `"`)
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse decimal %q", text)
	}
	return value, nil
}

// Bond derives the bond terms for an id. The same id always yields the same
// bond.
func (g *Generator) Bond(id int64) model.Bond {
	t := g.tiers[int(id)%len(g.tiers)]
	return model.Bond{
		ID:        id,
		Coupon:    t.coupon,
		Frequency: t.frequency,
		Tenor:     t.tenor,
	}
}

// Holding derives the portfolio document for an id: a contiguous window of
// bondsPer distinct catalog ids starting at a position keyed by the
// portfolio id.
func (g *Generator) Holding(portfolioID, catalogSize int64) (model.Holding, error) {
	if catalogSize < int64(g.bondsPer) {
		return model.Holding{}, errors.Errorf("catalog size %d smaller than portfolio size %d", catalogSize, g.bondsPer)
	}
	ids := make([]int64, g.bondsPer)
	start := ((portfolioID - 1) * int64(g.bondsPer)) % catalogSize
	for i := range ids {
		ids[i] = 1 + (start+int64(i))%catalogSize
	}
	return model.Holding{PortfolioID: portfolioID, BondIDs: ids}, nil
}

// Catalog materializes the full bond catalog and the portfolio documents for
// the identifier range [begin, begin+portfolios).
func (g *Generator) Catalog(catalogSize, portfolios, begin int64) ([]model.Bond, []model.Holding, error) {
	if catalogSize <= 0 {
		return nil, nil, errors.Errorf("catalog size must be > 0, got %d", catalogSize)
	}
	if portfolios < 0 || begin <= 0 {
		return nil, nil, errors.Errorf("invalid portfolio range: n=%d begin=%d", portfolios, begin)
	}
	bonds := make([]model.Bond, 0, catalogSize)
	for id := int64(1); id <= catalogSize; id++ {
		bonds = append(bonds, g.Bond(id))
	}
	holdings := make([]model.Holding, 0, portfolios)
	for id := begin; id < begin+portfolios; id++ {
		holding, err := g.Holding(id, catalogSize)
		if err != nil {
			return nil, nil, err
		}
		holdings = append(holdings, holding)
	}
	return bonds, holdings, nil
}
