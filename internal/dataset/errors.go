package dataset

import (
	"fmt"
	"strings"
)

// DataLoadError is returned when the source file is missing, unreadable, or not tabular.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// MissingColumnError is returned when required columns are absent from the source.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return "dataset missing required columns: " + strings.Join(e.Columns, ", ")
}
