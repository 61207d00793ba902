package proximity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const insertBatchSize = 500

// GormStore is the postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindCoordinate(ctx context.Context, kind Kind, referenceID uuid.UUID) (*Coordinate, error) {
	var c Coordinate
	err := s.db.WithContext(ctx).
		Where("kind = ? AND reference_id = ?", kind, referenceID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coordinate: %w", err)
	}
	return &c, nil
}

func (s *GormStore) CreateCoordinate(ctx context.Context, c *Coordinate) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create coordinate: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateCoordinate(ctx context.Context, c *Coordinate) error {
	// A map so nil latitude/longitude are written too.
	res := s.db.WithContext(ctx).
		Model(&Coordinate{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"address_id":   c.AddressID,
			"latitude":     c.Latitude,
			"longitude":    c.Longitude,
			"full_address": c.FullAddress,
			"updated_at":   c.UpdatedAt,
			"status":       c.Status,
		})
	if res.Error != nil {
		return fmt.Errorf("update coordinate: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListCoordinates(ctx context.Context, kind Kind) ([]Coordinate, error) {
	var out []Coordinate
	if err := s.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("reference_id").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list coordinates: %w", err)
	}
	return out, nil
}

func (s *GormStore) SaveRun(ctx context.Context, report *Report, analyses []Analysis) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		if len(analyses) > 0 {
			if err := tx.CreateInBatches(analyses, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert analyses: %w", err)
			}
		}
		if err := tx.Where("run_id <> ?", report.ID).Delete(&Analysis{}).Error; err != nil {
			return fmt.Errorf("drop previous analyses: %w", err)
		}
		return nil
	})
}

func (s *GormStore) LatestReport(ctx context.Context) (*Report, error) {
	var r Report
	err := s.db.WithContext(ctx).Order("generated_at DESC").First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &r, nil
}

func (s *GormStore) ListReports(ctx context.Context, limit int) ([]Report, error) {
	var out []Report
	q := s.db.WithContext(ctx).Order("generated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (s *GormStore) ListAnalyses(ctx context.Context, runID uuid.UUID, userIDs []uuid.UUID) ([]Analysis, error) {
	q := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if len(userIDs) > 0 {
		ids := make([]string, len(userIDs))
		for i, id := range userIDs {
			ids[i] = id.String()
		}
		q = q.Where("user_id = ANY(?::uuid[])", pq.Array(ids))
	}

	var out []Analysis
	if err := q.Order("user_id, rank").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return out, nil
}

func (s *GormStore) TopAnalyses(ctx context.Context, runID, userID uuid.UUID, n int) ([]Analysis, error) {
	var out []Analysis
	if err := s.db.WithContext(ctx).
		Where("run_id = ? AND user_id = ?", runID, userID).
		Order("rank").
		Limit(n).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("top analyses: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
