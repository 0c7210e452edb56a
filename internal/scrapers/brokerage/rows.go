package brokerage

import (
	"fmt"
)

// RowField decodes one line of a row run into a record.
type RowField[T any] struct {
	Name   string
	Decode func(line string, out *T) error
}

// RowSchema describes a record encoded as a fixed number of consecutive text
// lines, repeated back to back. The stride is the number of fields.
type RowSchema[T any] struct {
	Fields []RowField[T]
}

func (s RowSchema[T]) Stride() int {
	return len(s.Fields)
}

// Decode splits lines into runs of Stride() lines and decodes each run into a
// record. A trailing partial run or a field that fails to decode is reported
// as ErrMalformedPage.
func (s RowSchema[T]) Decode(lines []string) ([]T, error) {
	stride := s.Stride()
	if stride == 0 {
		return nil, fmt.Errorf("%w: empty row schema", ErrMalformedPage)
	}
	if len(lines)%stride != 0 {
		return nil, fmt.Errorf(
			"%w: got %d lines which is not a multiple of the row size %d",
			ErrMalformedPage, len(lines), stride,
		)
	}

	out := make([]T, 0, len(lines)/stride)
	for start := 0; start < len(lines); start += stride {
		var record T
		for i, field := range s.Fields {
			line := lines[start+i]
			err := field.Decode(line, &record)
			if err != nil {
				return nil, fmt.Errorf(
					"%w: row %d field %s (%q): %w",
					ErrMalformedPage, start/stride, field.Name, line, err,
				)
			}
		}
		out = append(out, record)
	}
	return out, nil
}
