package pagination

// Meta describes the page that was printed.
type Meta struct {
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasPrevious bool `json:"hasPrevious"`
	HasNext     bool `json:"hasNext"`
}

// NewMeta computes page metadata for a listing of total items.
func NewMeta(p Params, total int) Meta {
	offset, size := p.OffsetLimit()
	if size == 0 {
		size = total
	}

	meta := Meta{CurrentPage: 1, PageSize: size, TotalItems: total}
	if size > 0 {
		meta.TotalPages = (total + size - 1) / size
		meta.CurrentPage = offset/size + 1
	}
	if meta.TotalPages > 0 && meta.CurrentPage > meta.TotalPages && p.IsPageBased() {
		meta.CurrentPage = meta.TotalPages
	}
	meta.HasPrevious = meta.CurrentPage > 1
	meta.HasNext = meta.CurrentPage < meta.TotalPages
	return meta
}
