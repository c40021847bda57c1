package valuator

import (
	"math"
	"sort"

	"github.com/yanun0323/errors"

	"main/internal/model"
)

const faceValue = 100.0

// Valuator prices a bond against a yield curve. Implementations must be pure:
// the same bond always yields the same price.
type Valuator interface {
	Price(bond model.Bond) float64
}

// CurvePoint is one tenor/rate pair on the yield curve. Rate is an annual
// rate expressed as a decimal fraction (0.05 == 5%).
type CurvePoint struct {
	Tenor float64 `json:"tenor"`
	Rate  float64 `json:"rate"`
}

// Curve is an immutable yield curve queried by tenor.
type Curve struct {
	points []CurvePoint
}

// NewCurve builds a curve from the given points, sorted by tenor.
func NewCurve(points []CurvePoint) (*Curve, error) {
	if len(points) == 0 {
		return nil, errors.New("curve has no points")
	}
	sorted := make([]CurvePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tenor < sorted[j].Tenor })
	for i, pt := range sorted {
		if pt.Tenor <= 0 {
			return nil, errors.Errorf("curve tenor must be > 0, got %v", pt.Tenor)
		}
		if i > 0 && pt.Tenor == sorted[i-1].Tenor {
			return nil, errors.Errorf("duplicate curve tenor: %v", pt.Tenor)
		}
	}
	return &Curve{points: sorted}, nil
}

// DefaultCurve returns the benchmark's standard upward-sloping curve.
func DefaultCurve() *Curve {
	curve, err := NewCurve([]CurvePoint{
		{Tenor: 0.25, Rate: 0.042},
		{Tenor: 1, Rate: 0.044},
		{Tenor: 2, Rate: 0.045},
		{Tenor: 5, Rate: 0.047},
		{Tenor: 10, Rate: 0.049},
		{Tenor: 30, Rate: 0.051},
	})
	if err != nil {
		panic(err)
	}
	return curve
}

// Rate returns the annual yield for the given tenor, linearly interpolated
// between curve points and clamped to the curve ends.
func (c *Curve) Rate(tenor float64) float64 {
	points := c.points
	if tenor <= points[0].Tenor {
		return points[0].Rate
	}
	last := points[len(points)-1]
	if tenor >= last.Tenor {
		return last.Rate
	}
	idx := sort.Search(len(points), func(i int) bool { return points[i].Tenor >= tenor })
	lo, hi := points[idx-1], points[idx]
	frac := (tenor - lo.Tenor) / (hi.Tenor - lo.Tenor)
	return lo.Rate + frac*(hi.Rate-lo.Rate)
}

// Engine is the closed-form discounted cash flow valuator: the present value
// of the coupon annuity plus the discounted principal, both priced off the
// curve rate for the bond's tenor.
type Engine struct {
	curve *Curve
}

// NewEngine creates a valuator over the given curve.
func NewEngine(curve *Curve) *Engine {
	return &Engine{curve: curve}
}

// Price values a single bond. Degenerate terms (zero frequency or tenor) are
// clamped to one payment period so every bond in the catalog prices to a
// strictly positive value.
func (e *Engine) Price(b model.Bond) float64 {
	freq := b.Frequency
	if freq <= 0 {
		freq = 1
	}
	periods := int(math.Round(b.Tenor * float64(freq)))
	if periods <= 0 {
		periods = 1
	}
	periodYield := e.curve.Rate(b.Tenor) / float64(freq)
	coupon := faceValue * b.Coupon / 100 / float64(freq)

	price := 0.0
	discount := 1.0
	for t := 0; t < periods; t++ {
		discount /= 1 + periodYield
		price += coupon * discount
	}
	return price + faceValue*discount
}
