// Package pagination implements offset pages over sorted result sets.
package pagination

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidRequest is returned for non-numeric or non-positive page values.
var ErrInvalidRequest = errors.New("invalid page request")

// Config bounds page sizes.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Finalize applies defaults and validates the bounds.
func (c *Config) Finalize() error {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 10
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default page size %d exceeds max page size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// Request is a 1-based page number and a page size.
type Request struct {
	Page     int
	PageSize int
}

// Validate requires page >= 1 and page_size >= 1.
func (r Request) Validate() error {
	if r.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidRequest)
	}
	if r.PageSize < 1 {
		return fmt.Errorf("%w: page_size must be >= 1", ErrInvalidRequest)
	}
	return nil
}

// Offset is the number of items skipped before this page. It saturates at
// math.MaxInt64 so huge page numbers land past the end instead of wrapping.
func (r Request) Offset() int64 {
	if r.Page < 1 || r.PageSize < 1 {
		return 0
	}
	if int64(r.Page-1) > math.MaxInt64/int64(r.PageSize) {
		return math.MaxInt64
	}
	return int64(r.Page-1) * int64(r.PageSize)
}

// Parse reads raw query values. Empty values take the defaults (page 1,
// cfg.DefaultPageSize); page sizes above cfg.MaxPageSize are clamped, and the
// clamped size is what the returned page reports.
func Parse(page, pageSize string, cfg Config) (Request, error) {
	r := Request{Page: 1, PageSize: cfg.DefaultPageSize}
	if s := strings.TrimSpace(page); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return r, fmt.Errorf("%w: page must be an integer", ErrInvalidRequest)
		}
		r.Page = n
	}
	if s := strings.TrimSpace(pageSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return r, fmt.Errorf("%w: page_size must be an integer", ErrInvalidRequest)
		}
		r.PageSize = n
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	if cfg.MaxPageSize > 0 && r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
	return r, nil
}

// TotalPages is max(1, ceil(count/pageSize)).
func TotalPages(count int64, pageSize int) int {
	if pageSize < 1 || count <= 0 {
		return 1
	}
	n := count / int64(pageSize)
	if count%int64(pageSize) != 0 {
		n++
	}
	return int(n)
}

// Page is one window of a result set.
type Page[T any] struct {
	CurrentPage int
	TotalPages  int
	PageSize    int
	Items       []T
}

// NewPage builds a page from already-windowed items and the total count.
func NewPage[T any](items []T, count int64, r Request) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		CurrentPage: r.Page,
		TotalPages:  TotalPages(count, r.PageSize),
		PageSize:    r.PageSize,
		Items:       items,
	}
}

// Window returns the slice of all that falls on page r. Pages past the end
// yield an empty slice.
func Window[T any](all []T, r Request) []T {
	start := r.Offset()
	if start < 0 || start >= int64(len(all)) {
		return []T{}
	}
	end := start + int64(r.PageSize)
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	out := make([]T, end-start)
	copy(out, all[start:end])
	return out
}
