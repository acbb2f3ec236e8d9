package accounts

// Pagination carries page/limit request parameters. Zero values fall back
// to the defaults; limits are capped.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Normalize clamps the parameters into their valid ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// PageMeta describes one page of a paginated response.
type PageMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginated is a page of records plus its metadata.
type Paginated[T any] struct {
	Data       []T      `json:"data"`
	Pagination PageMeta `json:"pagination"`
}

// NewPaginated assembles a paginated envelope from a result slice and the
// total match count.
func NewPaginated[T any](data []T, total int, p Pagination) Paginated[T] {
	n := p.Normalize()

	totalPages := total / n.Limit
	if total%n.Limit != 0 {
		totalPages++
	}

	return Paginated[T]{
		Data: data,
		Pagination: PageMeta{
			Page:       n.Page,
			Limit:      n.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    n.Page < totalPages,
			HasPrev:    n.Page > 1,
		},
	}
}
