package request

import "local-services/pkg/utils"

// PaginatedRequest is optional on admin listings: a zero PerPage means "everything".
type PaginatedRequest struct {
	Page    int `json:"page" validate:"omitempty,min=1"`
	PerPage int `json:"per_page" validate:"omitempty,min=1,max=100"`
}

func (p PaginatedRequest) Paged() bool {
	return p.PerPage > 0
}

func (p PaginatedRequest) Offset() int {
	if !p.Paged() {
		return 0
	}
	return utils.CalculateOffset(p.Page, p.Limit())
}

// Limit is 0 (no limit) for unpaged requests
func (p PaginatedRequest) Limit() int {
	if !p.Paged() {
		return 0
	}
	if p.PerPage > 100 {
		return 100
	}
	return p.PerPage
}
