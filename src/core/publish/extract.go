package publish

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedDocument = errors.New("unsupported document type")

// Document is extracted text ready to be split into chunks
type Document struct {
	Source string
	Text   string
}

// Extract turns a stored file into one or more documents. CSV files yield
// one document per row rendered as "column: value" lines.
func Extract(name string, data []byte) ([]Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return []Document{{Source: name, Text: string(data)}}, nil
	case ".csv":
		return extractCSV(name, data)
	case ".pdf":
		text, err := extractPDF(data)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf %s: %w", name, err)
		}
		return []Document{{Source: name, Text: text}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, name)
	}
}

func extractCSV(name string, data []byte) ([]Document, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header %s: %w", name, err)
	}

	var docs []Document
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv %s: %w", name, err)
		}

		lines := make([]string, 0, len(record))
		for i, v := range record {
			col := fmt.Sprintf("column_%d", i)
			if i < len(header) {
				col = strings.TrimSpace(header[i])
			}
			lines = append(lines, col+": "+strings.TrimSpace(v))
		}
		docs = append(docs, Document{Source: name, Text: strings.Join(lines, "\n")})
	}
	return docs, nil
}

func extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
