package query

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
	// MaxPage keeps Skip far from integer overflow. Any page at or past it
	// is treated as MaxPage, which is beyond every realistic result set.
	MaxPage = 1 << 24
)

// Pagination is the navigation envelope returned with every list.
type Pagination struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalItems    int  `json:"totalItems"`
	HasNextPage   bool `json:"hasNextPage"`
	HasPrevPage   bool `json:"hasPrevPage"`
	Limit         int  `json:"limit"`
	NextPage      *int `json:"nextPage"`
	PrevPage      *int `json:"prevPage"`
	PagingCounter int  `json:"pagingCounter"`
}

// Page is a parsed page/limit pair.
type Page struct {
	Number int
	Limit  int
}

// Skip is the number of items before this page.
func (p Page) Skip() int { return (p.Number - 1) * p.Limit }

// ParsePage reads page and limit from v. Absent, non-numeric or non-positive
// values fall back to the defaults; the limit is capped at MaxLimit. Pages
// past the end are allowed.
func ParsePage(v url.Values) Page {
	return NewPage(v.Get("page"), v.Get("limit"))
}

func NewPage(page, limit any) Page {
	p := Page{Number: toInt(page), Limit: toInt(limit)}
	if p.Number < 1 {
		p.Number = DefaultPage
	}
	if p.Number > MaxPage {
		p.Number = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Paginate builds the envelope for a page of a result set holding total items.
func Paginate(page, limit, total int) Pagination {
	p := NewPage(page, limit)
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	out := Pagination{
		CurrentPage:   p.Number,
		TotalPages:    totalPages,
		TotalItems:    total,
		HasNextPage:   p.Number < totalPages,
		HasPrevPage:   p.Number > 1 && totalPages > 0,
		Limit:         p.Limit,
		PagingCounter: p.Skip() + 1,
	}
	if out.HasNextPage {
		n := p.Number + 1
		out.NextPage = &n
	}
	if out.HasPrevPage {
		n := p.Number - 1
		out.PrevPage = &n
	}
	return out
}

// toInt reads decimal strings with strconv so "010" is ten, not octal.
// Out-of-range strings saturate instead of failing.
func toInt(v any) int {
	s, ok := v.(string)
	if !ok {
		return cast.ToInt(v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}

// Window returns the [start, end) bounds of page p inside a slice of n items.
func Window(p Page, n int) (int, int) {
	start := p.Skip()
	if start < 0 || start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
