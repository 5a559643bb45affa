package audit

import (
	"context"
	"fmt"
)

// Repository reads activities.
type Repository interface {
	ListActivities(ctx context.Context, userID *int64, limit, offset int) ([]Activity, error)
}

// PagingInfo describes neighbouring pages.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	NextPage int  `json:"next_page,omitempty"`
	PrevPage int  `json:"prev_page,omitempty"`
}

// Result wraps a page of activities.
type Result struct {
	Rows   []Activity `json:"rows"`
	Paging PagingInfo `json:"paging"`
}

// Service serves the activity timeline.
type Service struct {
	repo Repository
}

// NewService constructs the timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page, probing one extra row to detect a next page.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.Page.Limit()
	offset := filters.Page.Offset()
	page := offset/pageSize + 1
	rows, err := s.repo.ListActivities(ctx, filters.UserID, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if rows == nil {
		rows = []Activity{}
	}
	return Result{Rows: rows, Paging: paging}, nil
}
