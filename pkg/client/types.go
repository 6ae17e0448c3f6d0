package client

// Contact is one record of the remote contacts collection. The data-access
// layer treats it as opaque apart from ID, which is used for de-duplication
// in accumulating consumers.
type Contact struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	GroupID   int    `json:"group_id"`
}

// Page is one page of contacts as returned by the server, together with the
// server's pagination verdict. Pages are the cache payload: they are created
// on a successful fetch, never mutated, and only replaced wholesale.
type Page struct {
	// Contacts in server-provided order.
	Contacts []Contact `json:"contacts"`

	// Total is the collection-wide record count for the query.
	Total int `json:"total"`

	// Number is the 1-based page number this page holds.
	Number int `json:"number"`

	// TotalPages as reported by the server.
	TotalPages int `json:"total_pages"`

	// HasNext reports whether a page Number+1 exists. This is the server's
	// own verdict and is authoritative over any count arithmetic.
	HasNext bool `json:"has_next"`

	// HasPrev reports whether a page Number-1 exists.
	HasPrev bool `json:"has_prev"`
}

// envelope is the wire format of the contacts listing endpoint.
type envelope struct {
	Success    bool      `json:"success"`
	Data       []Contact `json:"data"`
	Total      int       `json:"total"`
	Pagination struct {
		HasNext     bool `json:"hasNext"`
		HasPrevious bool `json:"hasPrevious"`
		CurrentPage int  `json:"currentPage"`
		TotalPages  int  `json:"totalPages"`
	} `json:"pagination"`
	Error string `json:"error,omitempty"`
}
