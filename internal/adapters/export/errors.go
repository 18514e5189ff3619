package export

import "errors"

// ErrInvalidCSV is returned when a document does not look like an attendance export.
var ErrInvalidCSV = errors.New("invalid attendance csv")
