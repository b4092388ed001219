package snowflake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	// Epoch is 2018-01-01T00:00:00Z in unix milliseconds
	Epoch int64 = 1514764800000

	timestampDivisor int64 = 4194303
)

// ID is a server assigned snowflake. It arrives either as a JSON string or
// a JSON number and is always written back as a string.
type ID int64

func Parse(s string) (ID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("snowflake [%s] is in improper format: %w", s, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("snowflake [%s] is negative", s)
	}
	return ID(id), nil
}

// CreatedAt returns the creation time encoded in a snowflake, in unix milliseconds.
func CreatedAt(id int64) int64 {
	return id/timestampDivisor + Epoch
}

func (id ID) CreatedAt() time.Time {
	return time.UnixMilli(CreatedAt(int64(id)))
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(id.String())), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	if s == "" {
		*id = 0
		return nil
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
