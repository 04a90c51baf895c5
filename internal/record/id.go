package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a record identifier as it appears on the wire: either a JSON string
// or a JSON integer. The original encoding is kept so enriched records are
// written back the way they were read.
type ID struct {
	Value   string
	Numeric bool
}

func StringID(v string) ID { return ID{Value: v} }

func (id ID) String() string { return id.Value }

func (id ID) IsZero() bool { return id.Value == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.Numeric {
		return []byte(id.Value), nil
	}
	return json.Marshal(id.Value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		id.Numeric = false
		return json.Unmarshal(data, &id.Value)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number, got %s", data)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("id must be an integer, got %s", data)
	}
	id.Value = n.String()
	id.Numeric = true
	return nil
}
