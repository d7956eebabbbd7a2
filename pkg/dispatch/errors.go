package dispatch

import "errors"

// ErrInquiryTimeout indicates no answer arrived within the inquiry timeout
var ErrInquiryTimeout = errors.New("inquiry timed out")
