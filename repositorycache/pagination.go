package repositorycache

// Pagination carries the page boundaries of a listing. Prev and Next are nil
// when there is no such page.
type Pagination struct {
	First int  `json:"first" msgpack:"first"`
	Last  int  `json:"last" msgpack:"last"`
	Prev  *int `json:"prev,omitempty" msgpack:"prev,omitempty"`
	Next  *int `json:"next,omitempty" msgpack:"next,omitempty"`
}

// Paginate computes the boundaries of page number out of total matches split
// into pages of size. Pages are zero based.
//
// An empty result set yields Last == -1. size must be positive.
func Paginate(total, size, number int) Pagination {
	last := total / size
	if total%size == 0 {
		last--
	}

	p := Pagination{First: 0, Last: last}
	if number < last {
		next := number + 1
		p.Next = &next
	}
	if number-1 >= 0 {
		prev := number - 1
		p.Prev = &prev
	}
	return p
}
