package services

import (
	"context"
	"errors"
	"fmt"

	"journal-workflow-api/config"
	"journal-workflow-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository stores aggregates in MySQL. A manuscript row carries its
// authors, keywords, files and revisions as JSON columns; assignments,
// decisions and status history live in their own tables keyed by manuscript.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	if db == nil {
		db = config.DB
	}
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, agg *Aggregate) error {
	if agg == nil || agg.Manuscript == nil {
		return errors.New("aggregate is nil")
	}
	agg.Manuscript.Version = 1

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(agg.Manuscript).Error; err != nil {
			return fmt.Errorf("insert manuscript: %w", err)
		}
		if len(agg.History) > 0 {
			if err := tx.Create(&agg.History).Error; err != nil {
				return fmt.Errorf("insert status history: %w", err)
			}
		}
		return nil
	})
}

func (r *GormRepository) Load(ctx context.Context, manuscriptID string) (*Aggregate, error) {
	db := r.db.WithContext(ctx)

	var manuscript models.Manuscript
	if err := db.Where("id = ?", manuscriptID).First(&manuscript).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load manuscript %s: %w", manuscriptID, err)
	}

	agg := &Aggregate{Manuscript: &manuscript}
	if err := db.Where("manuscript_id = ?", manuscriptID).
		Order("assigned_date ASC").
		Find(&agg.Assignments).Error; err != nil {
		return nil, fmt.Errorf("load assignments for %s: %w", manuscriptID, err)
	}
	if err := db.Where("manuscript_id = ?", manuscriptID).
		Order("decided_date ASC").
		Find(&agg.Decisions).Error; err != nil {
		return nil, fmt.Errorf("load decisions for %s: %w", manuscriptID, err)
	}
	if err := db.Where("manuscript_id = ?", manuscriptID).
		Order("created_at ASC").
		Find(&agg.History).Error; err != nil {
		return nil, fmt.Errorf("load status history for %s: %w", manuscriptID, err)
	}
	return agg, nil
}

func (r *GormRepository) Save(ctx context.Context, agg *Aggregate, expectedVersion int64) error {
	if agg == nil || agg.Manuscript == nil {
		return errors.New("aggregate is nil")
	}
	m := agg.Manuscript

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Manuscript{}).
			Where("id = ? AND version = ?", m.ID, expectedVersion).
			Updates(map[string]interface{}{
				"title":            m.Title,
				"abstract":         m.Abstract,
				"keywords":         m.Keywords,
				"section":          m.Section,
				"authors":          m.Authors,
				"files":            m.Files,
				"status":           m.Status,
				"revision_history": m.RevisionHistory,
				"current_revision": m.CurrentRevision,
				"doi":              m.DOI,
				"published_at":     m.PublishedAt,
				"submitted_at":     m.SubmittedAt,
				"version":          expectedVersion + 1,
				"updated_at":       m.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update manuscript: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleAggregate
		}

		if len(agg.Assignments) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&agg.Assignments).Error; err != nil {
				return fmt.Errorf("upsert assignments: %w", err)
			}
		}
		// Decisions and history are append-only.
		if len(agg.Decisions) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&agg.Decisions).Error; err != nil {
				return fmt.Errorf("insert decisions: %w", err)
			}
		}
		if len(agg.History) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&agg.History).Error; err != nil {
				return fmt.Errorf("insert status history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.Version = expectedVersion + 1
	return nil
}

func (r *GormRepository) ManuscriptIDForAssignment(ctx context.Context, assignmentID string) (string, error) {
	var row struct {
		ManuscriptID string
	}
	err := r.db.WithContext(ctx).
		Model(&models.ReviewAssignment{}).
		Select("manuscript_id").
		Where("id = ?", assignmentID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find assignment %s: %w", assignmentID, err)
	}
	return row.ManuscriptID, nil
}

func (r *GormRepository) ListManuscripts(ctx context.Context, filter ManuscriptFilter) ([]*models.Manuscript, error) {
	q := r.db.WithContext(ctx).Model(&models.Manuscript{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SubmitterID != "" {
		q = q.Where("submitter_id = ? OR JSON_CONTAINS(authors, JSON_OBJECT('user_id', ?))",
			filter.SubmitterID, filter.SubmitterID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var manuscripts []*models.Manuscript
	if err := q.Order("updated_at DESC").Find(&manuscripts).Error; err != nil {
		return nil, fmt.Errorf("list manuscripts: %w", err)
	}
	return manuscripts, nil
}

func (r *GormRepository) ListAssignmentsByReviewer(ctx context.Context, reviewerID string) ([]*models.ReviewAssignment, error) {
	var assignments []*models.ReviewAssignment
	if err := r.db.WithContext(ctx).
		Where("reviewer_id = ?", reviewerID).
		Order("assigned_date ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("list assignments for reviewer %s: %w", reviewerID, err)
	}
	return assignments, nil
}
