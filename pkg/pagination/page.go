package pagination

// PageParams holds offset pagination inputs. Page is 1-based.
type PageParams struct {
	Page  int
	Limit int
}

// PageMeta describes an offset page for API responses.
type PageMeta struct {
	TotalItems  int64 `json:"totalItems"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalPages  int   `json:"totalPages"`
}

// Normalize clamps page and limit into their valid ranges.
func (p PageParams) Normalize() PageParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset returns the number of rows to skip.
func (p PageParams) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Meta builds the response metadata for the given total row count.
func (p PageParams) Meta(total int64) PageMeta {
	n := p.Normalize()
	pages := int(total / int64(n.Limit))
	if total%int64(n.Limit) != 0 {
		pages++
	}
	return PageMeta{
		TotalItems:  total,
		CurrentPage: n.Page,
		PageSize:    n.Limit,
		TotalPages:  pages,
	}
}
