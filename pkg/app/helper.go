package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

var ErrMissingFile = errors.New("no file field in form")

// FormFile is one multipart file read fully into memory.
type FormFile struct {
	Filename string
	Data     []byte
}

// ReadFormFile reads the file submitted under key. When limit > 0 at most
// limit+1 bytes are read, so an oversized upload is still detectable by its
// length without buffering all of it.
func ReadFormFile(c echo.Context, key string, limit int64) (*FormFile, error) {
	header, err := c.FormFile(key)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, ErrMissingFile
		}

		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening form file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading form file: %w", err)
	}

	return &FormFile{
		Filename: header.Filename,
		Data:     data,
	}, nil
}
