package retriever

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/jsonl"
)

const DefaultTextField = "text"

// LoadCorpus reads a line-delimited JSON knowledge source and returns the
// value of field from every line, in file order.
func LoadCorpus(path string, field string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()
	docs, err := ReadCorpus(f, field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

func ReadCorpus(r io.Reader, field string) ([]string, error) {
	if field == "" {
		field = DefaultTextField
	}
	var docs []string
	err := jsonl.Scan(r, func(line int, raw []byte) error {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decoding line %d: %w", line, err)
		}
		value, ok := entry[field]
		if !ok {
			return fmt.Errorf("%w: line %d has no %q field", apperrors.ErrInvalidInput, line, field)
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return fmt.Errorf("%w: line %d field %q is not a string: %s",
				apperrors.ErrInvalidInput, line, field, value)
		}
		docs = append(docs, text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
