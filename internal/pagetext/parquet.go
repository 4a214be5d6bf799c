package pagetext

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes pages to a parquet file at path.
func WriteParquet(path string, pages []Page) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[Page](f)
	if _, err := w.Write(pages); err != nil {
		return fmt.Errorf("failed to write pages: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return f.Close()
}

// ReadParquet loads pages written by WriteParquet.
func ReadParquet(path string) ([]Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Page](pf)
	defer reader.Close()

	pages := make([]Page, 0, pf.NumRows())
	rows := make([]Page, 128)
	for {
		n, err := reader.Read(rows)
		pages = append(pages, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pages: %w", err)
		}
	}

	return pages, nil
}
