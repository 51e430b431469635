package entity

// Page sizes per listing.
const (
	UserPageSize     = 10
	ProductPageSize  = 12
	OrderPageSize    = 20
	MyOrdersPageSize = 10
)

type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
}

func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Items: items, Page: page, Pages: pages, Total: total}
}

// NormalizePage clamps a 1-based page number and returns the number of
// documents to skip.
func NormalizePage(page, size int) (int, int64) {
	if page < 1 {
		page = 1
	}
	return page, int64((page - 1) * size)
}
