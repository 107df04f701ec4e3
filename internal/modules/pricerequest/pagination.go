// README: Page arithmetic and the page-number window shown under the lane table.
package pricerequest

type PageLink struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

type Pagination struct {
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Pages      []PageLink `json:"pages"`
}

// Paginate clamps page into range. Start and End are 1-based and inclusive;
// both are zero for an empty result.
func Paginate(total, page, size int) Pagination {
	if size < 1 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	p := Pagination{Page: page, PageSize: size, Total: total, TotalPages: pages}
	if total > 0 {
		p.Start = (page-1)*size + 1
		p.End = min(page*size, total)
	}
	p.Pages = PageWindow(page, pages)
	return p
}

// PageWindow lists the page links to render. Up to seven pages are all
// shown; beyond that the first and last page frame a window around current.
func PageWindow(current, totalPages int) []PageLink {
	if totalPages <= 1 {
		return []PageLink{}
	}
	var nums []int
	switch {
	case totalPages <= 7:
		nums = span(1, totalPages)
	case current <= 4:
		nums = append(span(1, 5), 0, totalPages)
	case current >= totalPages-3:
		nums = append([]int{1, 0}, span(totalPages-4, totalPages)...)
	default:
		nums = append([]int{1, 0}, span(current-1, current+1)...)
		nums = append(nums, 0, totalPages)
	}

	links := make([]PageLink, len(nums))
	for i, n := range nums {
		if n == 0 {
			links[i] = PageLink{Ellipsis: true}
			continue
		}
		links[i] = PageLink{Number: n, Current: n == current}
	}
	return links
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
