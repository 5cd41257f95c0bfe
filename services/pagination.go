package services

import "strconv"

// Page is one slice of an ordered post listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Number   int   `json:"page"`
	NumPages int   `json:"num_pages"`
	Count    int64 `json:"count"`
	PageSize int   `json:"page_size"`
}

func (p *Page[T]) HasPrevious() bool       { return p.Number > 1 }
func (p *Page[T]) HasNext() bool           { return p.Number < p.NumPages }
func (p *Page[T]) HasOtherPages() bool     { return p.NumPages > 1 }
func (p *Page[T]) PreviousPageNumber() int { return p.Number - 1 }
func (p *Page[T]) NextPageNumber() int     { return p.Number + 1 }

// PageRange lists every page number, for rendering the paginator.
func (p *Page[T]) PageRange() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// ResolvePage turns a raw ?page= value into a valid page number.
// Non-numeric or values below 1 give the first page, values past the end give the last page.
// An empty listing still has one page.
func ResolvePage(raw string, count int64, size int) (number, numPages int) {
	if size <= 0 {
		size = 10
	}
	numPages = int((count + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return number, numPages
}
