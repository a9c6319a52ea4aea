package pagination

// Meta describes the page returned by a list command.
type Meta struct {
	TotalItems int  `json:"total_items"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit,omitempty"`
	Page       int  `json:"page,omitempty"`
	TotalPages int  `json:"total_pages,omitempty"`
	Returned   int  `json:"returned"`
	HasMore    bool `json:"has_more"`
}

// NewMeta builds page metadata for a window of returned items out of total.
func NewMeta(p Params, total, returned int) Meta {
	offset, limit := p.Window()
	return Meta{
		TotalItems: total,
		Offset:     offset,
		Limit:      limit,
		Page:       p.Page,
		TotalPages: p.TotalPages(total),
		Returned:   returned,
		HasMore:    offset+returned < total,
	}
}
