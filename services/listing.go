package services

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"indibox/repository"
)

// PageSize is the fixed number of games per listing page.
const PageSize = 12

const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

// PageRequest is a listing request as it arrives from the client.
type PageRequest struct {
	Page      int
	Genre     string
	Sort      string
	Direction string
	Search    string
}

// Normalize clamps the page and drops unknown sort keys and directions.
// Genres are folded the same way stored labels are.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	r.Genre = cases.Lower(language.Und).String(strings.TrimSpace(r.Genre))
	r.Search = strings.TrimSpace(r.Search)
	switch repository.SortKey(r.Sort) {
	case repository.SortCreated, repository.SortRating, repository.SortDownloads, repository.SortTitle:
	default:
		r.Sort = string(repository.SortCreated)
	}
	if r.Direction != DirAsc {
		r.Direction = DirDesc
	}
	return r
}

func (r PageRequest) window() (offset, limit int) {
	return (r.Page - 1) * PageSize, PageSize
}

// query builds the repository query for published games. r must be normalized.
func (r PageRequest) query() repository.ListQuery {
	offset, limit := r.window()
	return repository.ListQuery{
		Offset: offset,
		Limit:  limit,
		Genre:  r.Genre,
		Search: r.Search,
		Sort:   repository.SortKey(r.Sort),
		Desc:   r.Direction == DirDesc,
	}
}

type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

func newPage[T any](items []T, total int64, page int) PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return PageResponse[T]{
		Items:      items,
		TotalItems: total,
		TotalPages: int((total + PageSize - 1) / PageSize),
		Page:       page,
		PageSize:   PageSize,
	}
}

type PageLinks struct {
	Self string `json:"self"`
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// ListState is the browsing position a client holds: filters, ordering
// and page. Every change returns a new state.
type ListState struct {
	req PageRequest
}

func NewListState(req PageRequest) ListState {
	return ListState{req: req.Normalize()}
}

func (s ListState) Request() PageRequest {
	return s.req
}

func (s ListState) WithGenre(genre string) ListState {
	s.req.Genre = genre
	return s.reset()
}

func (s ListState) WithSort(sort string) ListState {
	s.req.Sort = sort
	return s.reset()
}

func (s ListState) WithDirection(dir string) ListState {
	s.req.Direction = dir
	return s.reset()
}

func (s ListState) WithSearch(q string) ListState {
	s.req.Search = q
	return s.reset()
}

// WithPage moves to page p and keeps every filter.
func (s ListState) WithPage(p int) ListState {
	s.req.Page = p
	s.req = s.req.Normalize()
	return s
}

func (s ListState) reset() ListState {
	s.req.Page = 1
	s.req = s.req.Normalize()
	return s
}

// Path is the route the state lives on. A state without a search term is
// the plain catalogue.
func (s ListState) Path() string {
	if s.req.Search == "" {
		return "/games"
	}
	return "/games/search"
}

// URL renders the state with default values omitted.
func (s ListState) URL() string {
	v := url.Values{}
	if s.req.Search != "" {
		v.Set("q", s.req.Search)
	}
	if s.req.Genre != "" {
		v.Set("genre", s.req.Genre)
	}
	if s.req.Sort != string(repository.SortCreated) {
		v.Set("sort", s.req.Sort)
	}
	if s.req.Direction != DirDesc {
		v.Set("dir", s.req.Direction)
	}
	if s.req.Page > 1 {
		v.Set("page", strconv.Itoa(s.req.Page))
	}
	if len(v) == 0 {
		return s.Path()
	}
	return s.Path() + "?" + v.Encode()
}

func (s ListState) Links(totalPages int) PageLinks {
	links := PageLinks{Self: s.URL()}
	if s.req.Page > 1 {
		prev := min(s.req.Page-1, max(totalPages, 1))
		links.Prev = s.WithPage(prev).URL()
	}
	if s.req.Page < totalPages {
		links.Next = s.WithPage(s.req.Page + 1).URL()
	}
	return links
}
