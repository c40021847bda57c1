package store

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"main/internal/exception"
	"main/internal/model"
	"main/pkg/conn"
)

const insertBatchSize = 500

// portfolioDoc is the persisted Portfolios document: an id, the JSON-encoded
// ordered bond id list, and the last computed valuation.
type portfolioDoc struct {
	ID      int64   `gorm:"column:id;primaryKey"`
	BondIDs string  `gorm:"column:bond_ids;type:text;not null"`
	Price   float64 `gorm:"column:price;not null;default:0"`
}

func (portfolioDoc) TableName() string { return "portfolios" }

// bondDoc is the persisted Bonds document.
type bondDoc struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	Coupon    float64 `gorm:"column:coupon;not null"`
	Frequency int     `gorm:"column:frequency;not null"`
	Tenor     float64 `gorm:"column:tenor;not null"`
	Price     float64 `gorm:"column:price;not null;default:0"`
}

func (bondDoc) TableName() string { return "bonds" }

// Postgres implements Gateway over the portfolios and bonds collections.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres creates a gateway backed by the given connection.
func NewPostgres(client *conn.Client) (*Postgres, error) {
	if client == nil || client.DB() == nil {
		return nil, errors.New("postgres client is nil")
	}
	return &Postgres{db: client.DB()}, nil
}

// Migrate creates the portfolios and bonds tables when missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&portfolioDoc{}, &bondDoc{}); err != nil {
		return errors.Wrapf(exception.ErrTransport, "migrate: %v", err)
	}
	return nil
}

// FetchBondIDs returns the ordered bond ids held by the portfolio.
func (s *Postgres) FetchBondIDs(ctx context.Context, portfolioID int64) ([]int64, error) {
	var doc portfolioDoc
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", portfolioID).Error; err != nil {
		return nil, mapFetchErr(err, "portfolio", portfolioID)
	}
	ids, err := decodeBondIDs(doc.BondIDs)
	if err != nil {
		return nil, errors.Wrapf(err, "portfolio %d", portfolioID)
	}
	return ids, nil
}

// FetchBonds returns the portfolio with its full bond collection resident,
// ordered as listed in the portfolio document.
func (s *Postgres) FetchBonds(ctx context.Context, portfolioID int64) (model.Portfolio, error) {
	ids, err := s.FetchBondIDs(ctx, portfolioID)
	if err != nil {
		return model.Portfolio{}, err
	}

	var docs []bondDoc
	if err := s.db.WithContext(ctx).Find(&docs, "id IN ?", ids).Error; err != nil {
		return model.Portfolio{}, errors.Wrapf(exception.ErrTransport, "fetch bonds for portfolio %d: %v", portfolioID, err)
	}
	byID := make(map[int64]bondDoc, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	bonds := make([]model.Bond, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			return model.Portfolio{}, errors.Wrapf(exception.ErrNotFound, "bond: %d (portfolio %d)", id, portfolioID)
		}
		bonds = append(bonds, toBond(doc))
	}
	return model.Portfolio{ID: portfolioID, Bonds: bonds}, nil
}

// FetchBond returns a single bond by id.
func (s *Postgres) FetchBond(ctx context.Context, bondID int64) (model.Bond, error) {
	var doc bondDoc
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", bondID).Error; err != nil {
		return model.Bond{}, mapFetchErr(err, "bond", bondID)
	}
	return toBond(doc), nil
}

// UpdatePrice overwrites the portfolio's stored valuation.
func (s *Postgres) UpdatePrice(ctx context.Context, portfolioID int64, price float64) error {
	result := s.db.WithContext(ctx).Model(&portfolioDoc{}).Where("id = ?", portfolioID).Update("price", price)
	if result.Error != nil {
		return errors.Wrapf(exception.ErrTransport, "update price for portfolio %d: %v", portfolioID, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(exception.ErrNotFound, "portfolio: %d", portfolioID)
	}
	return nil
}

// Reset drops every document from both collections before re-seeding.
func (s *Postgres) Reset(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&portfolioDoc{}).Error; err != nil {
		return errors.Wrapf(exception.ErrTransport, "reset portfolios: %v", err)
	}
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&bondDoc{}).Error; err != nil {
		return errors.Wrapf(exception.ErrTransport, "reset bonds: %v", err)
	}
	return nil
}

// InsertBonds persists the bond catalog in batches.
func (s *Postgres) InsertBonds(ctx context.Context, bonds []model.Bond) error {
	docs := make([]bondDoc, 0, len(bonds))
	for _, bond := range bonds {
		docs = append(docs, bondDoc{
			ID:        bond.ID,
			Coupon:    bond.Coupon,
			Frequency: bond.Frequency,
			Tenor:     bond.Tenor,
			Price:     bond.Price,
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(docs, insertBatchSize).Error; err != nil {
		return errors.Wrapf(exception.ErrTransport, "insert %d bonds: %v", len(bonds), err)
	}
	logs.Infof("inserted %d bonds", len(bonds))
	return nil
}

// InsertHoldings persists the portfolio documents in batches.
func (s *Postgres) InsertHoldings(ctx context.Context, holdings []model.Holding) error {
	docs := make([]portfolioDoc, 0, len(holdings))
	for _, holding := range holdings {
		encoded, err := encodeBondIDs(holding.BondIDs)
		if err != nil {
			return errors.Wrapf(err, "portfolio %d", holding.PortfolioID)
		}
		docs = append(docs, portfolioDoc{ID: holding.PortfolioID, BondIDs: encoded})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(docs, insertBatchSize).Error; err != nil {
		return errors.Wrapf(exception.ErrTransport, "insert %d portfolios: %v", len(holdings), err)
	}
	logs.Infof("inserted %d portfolios", len(holdings))
	return nil
}

func mapFetchErr(err error, kind string, id int64) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(exception.ErrNotFound, "%s: %d", kind, id)
	}
	return errors.Wrapf(exception.ErrTransport, "fetch %s %d: %v", kind, id, err)
}

func toBond(doc bondDoc) model.Bond {
	return model.Bond{
		ID:        doc.ID,
		Coupon:    doc.Coupon,
		Frequency: doc.Frequency,
		Tenor:     doc.Tenor,
		Price:     doc.Price,
	}
}

func encodeBondIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", errors.Wrap(err, "encode bond ids")
	}
	return string(data), nil
}

func decodeBondIDs(encoded string) ([]int64, error) {
	if encoded == "" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
		return nil, errors.Wrap(err, "decode bond ids")
	}
	return ids, nil
}
