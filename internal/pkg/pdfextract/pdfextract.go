package pdfextract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var ErrEmpty = errors.New("empty pdf")

// PageCount parses the document trailer and returns the number of pages.
func PageCount(data []byte) (n int, err error) {
	// the parser panics on some malformed object streams
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	if len(data) == 0 {
		return 0, ErrEmpty
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}
