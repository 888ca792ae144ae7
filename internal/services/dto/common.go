package dto

// PaginationQuery is bound from query parameters on list endpoints.
type PaginationQuery struct {
	Page  int `form:"page" validate:"omitempty,gte=1"`
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// Normalize fills defaults and returns the SQL offset.
func (q *PaginationQuery) Normalize() (limit, offset int) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	return q.Limit, (q.Page - 1) * q.Limit
}

// ListMeta accompanies paginated responses.
type ListMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
