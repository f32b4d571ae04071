package domain

import "strings"

// SearchRequest is an outbound search with an optional return date.
type SearchRequest struct {
	Origin      string  `json:"origin" validate:"required,min=2,max=64"`
	Destination string  `json:"destination" validate:"required,min=2,max=64,nefield=Origin"`
	Date        string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ReturnDate  string  `json:"return_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MinPrice    float64 `json:"min_price,omitempty" validate:"gte=0"`
	MaxPrice    float64 `json:"max_price,omitempty" validate:"gte=0"`
}

func (r SearchRequest) Normalize() SearchRequest {
	r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
	r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
	r.Date = strings.TrimSpace(r.Date)
	r.ReturnDate = strings.TrimSpace(r.ReturnDate)
	return r
}

func (r SearchRequest) Validate() error {
	return validationFailure(r)
}

func (r SearchRequest) Scope() Scope {
	return NewScope(r.Origin, r.Destination, r.Date)
}

// ReturnScope is the reversed route on the return date, or false for a one-way search.
func (r SearchRequest) ReturnScope() (Scope, bool) {
	if r.ReturnDate == "" {
		return Scope{}, false
	}
	return r.Scope().Reverse(r.ReturnDate), true
}
