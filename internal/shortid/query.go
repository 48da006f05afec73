package shortid

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dcim-inventory-backend/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Stats is the aggregate view of the pool.
type Stats struct {
	Total     int64                      `json:"total"`
	Generated int64                      `json:"generated"`
	Printed   int64                      `json:"printed"`
	Bound     int64                      `json:"bound"`
	Cancelled int64                      `json:"cancelled"`
	ByType    map[model.EntityType]int64 `json:"byType,omitempty"`
}

// Stats counts records by status. Without a filter it also breaks bound
// records down by entity type. A filter matches on the bound entity type,
// and unbound records have none, so a filtered result always reports zero
// generated and printed records.
func (p *Pool) Stats(ctx context.Context, entityType model.EntityType) (Stats, error) {
	type statusCount struct {
		Status model.ShortIDStatus
		N      int64
	}

	q := p.db.WithContext(ctx).Model(&model.ShortID{})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}

	var rows []statusCount
	if err := q.Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count short ids: %w", err)
	}

	var s Stats
	for _, r := range rows {
		s.Total += r.N
		switch r.Status {
		case model.StatusGenerated:
			s.Generated = r.N
		case model.StatusPrinted:
			s.Printed = r.N
		case model.StatusBound:
			s.Bound = r.N
		case model.StatusCancelled:
			s.Cancelled = r.N
		}
	}

	if entityType != "" {
		return s, nil
	}

	type typeCount struct {
		EntityType model.EntityType
		N          int64
	}
	var byType []typeCount
	if err := p.db.WithContext(ctx).Model(&model.ShortID{}).
		Select("entity_type, COUNT(*) AS n").
		Where("status = ?", model.StatusBound).
		Group("entity_type").
		Scan(&byType).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count bound short ids by type: %w", err)
	}
	s.ByType = make(map[model.EntityType]int64, len(byType))
	for _, r := range byType {
		s.ByType[r.EntityType] = r.N
	}
	return s, nil
}

// RecordFilter narrows ListRecords. Zero fields do not filter.
type RecordFilter struct {
	EntityType model.EntityType
	Status     model.ShortIDStatus
	BatchNo    string
	// Search matches a short id in either display or bare form exactly, or
	// any record whose entity id contains it.
	Search string
}

// RecordPage is one page of pool records.
type RecordPage struct {
	Records    []model.ShortID `json:"records"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListRecords returns a page of records ordered by value.
func (p *Pool) ListRecords(ctx context.Context, filter RecordFilter, page, pageSize int) (RecordPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	// gorm statements are not reusable after Count, so build twice.
	query := func() *gorm.DB {
		q := p.db.WithContext(ctx).Model(&model.ShortID{})
		if filter.EntityType != "" {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.BatchNo != "" {
			q = q.Where("batch_no = ?", filter.BatchNo)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + likeEscaper.Replace(search) + "%"
			if v, err := p.codec.Parse(search); err == nil {
				q = q.Where(`value = ? OR entity_id LIKE ? ESCAPE '\'`, v, like)
			} else {
				q = q.Where(`entity_id LIKE ? ESCAPE '\'`, like)
			}
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return RecordPage{}, fmt.Errorf("failed to count short id records: %w", err)
	}

	records := make([]model.ShortID, 0, pageSize)
	if err := query().
		Order("value ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return RecordPage{}, fmt.Errorf("failed to list short id records: %w", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return RecordPage{
		Records:    records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
