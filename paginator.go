package arbor

import "context"

// Paginator is one page of results plus the counts needed to render
// navigation. LastPage is the ceiling of Total/PerPage, never below 1.
type Paginator struct {
	Items       []*Entity
	Total       int
	PerPage     int
	CurrentPage int
	LastPage    int
}

// HasMorePages reports whether pages follow the current one.
func (p *Paginator) HasMorePages() bool {
	return p.CurrentPage < p.LastPage
}

// From returns the 1-based index of the first item on the page, or 0
// when the page is empty.
func (p *Paginator) From() int {
	if len(p.Items) == 0 {
		return 0
	}
	return (p.CurrentPage-1)*p.PerPage + 1
}

// To returns the 1-based index of the last item on the page, or 0 when
// the page is empty.
func (p *Paginator) To() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.From() + len(p.Items) - 1
}

// Paginate runs a COUNT over the accumulated predicates and fetches the
// requested page. Pages are 1-based; a page below 1 is clamped to 1.
// Eager-load paths requested with With apply to the page's items.
func (q *Query) Paginate(ctx context.Context, page, perPage int) (*Paginator, error) {
	if q.err != nil {
		return nil, q.err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	pageQ := &Query{
		client: q.client,
		def:    q.def,
		sel:    q.sel.Clone().Limit(perPage).Offset((page - 1) * perPage),
		withs:  q.withs,
		ttl:    q.ttl,
	}
	items, err := pageQ.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Paginator{
		Items:       items,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}, nil
}
