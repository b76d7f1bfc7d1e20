package queryplan

import "errors"

var (
	errNotAnInt      = errors.New("not a valid int")
	errNotAFloat     = errors.New("not a valid float")
	errNotABool      = errors.New("not a valid bool")
	errNotADate      = errors.New("not a valid date (want YYYY-MM-DD)")
	errNotADatetime  = errors.New("not a valid datetime (want RFC3339)")
	errNotJSON       = errors.New("not valid JSON")
)
