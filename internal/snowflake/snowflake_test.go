package snowflake

import (
	"encoding/json"
	"testing"
)

func TestCreatedAt(t *testing.T) {
	tests := []struct {
		name     string
		id       int64
		expected int64
	}{
		{name: "Zero id is the epoch", id: 0, expected: Epoch},
		{name: "Below one divisor", id: 4194302, expected: Epoch},
		{name: "Exactly one divisor", id: 4194303, expected: Epoch + 1},
		{name: "Large id", id: 4194303 * 1000, expected: Epoch + 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CreatedAt(tc.id); got != tc.expected {
				t.Errorf("CreatedAt(%d) = %d, expected %d", tc.id, got, tc.expected)
			}
		})
	}
}

func TestCreatedAtIsIdempotent(t *testing.T) {
	id := ID(829337613021077504)
	first := id.CreatedAt()
	second := id.CreatedAt()
	if !first.Equal(second) || first.UnixMilli() != CreatedAt(int64(id)) {
		t.Errorf("decoding the same id twice gave %v and %v", first, second)
	}
}

func TestCreatedAtIsNonDecreasing(t *testing.T) {
	previous := CreatedAt(0)
	for id := int64(0); id < 50_000_000; id += 999_983 {
		current := CreatedAt(id)
		if current < previous {
			t.Fatalf("CreatedAt(%d) = %d went below previous value %d", id, current, previous)
		}
		previous = current
	}
}

func TestUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    ID
		expectError bool
	}{
		{name: "String id", input: `"1234"`, expected: 1234},
		{name: "Number id", input: `1234`, expected: 1234},
		{name: "Null id", input: `null`, expected: 0},
		{name: "Empty string", input: `""`, expected: 0},
		{name: "Not a number", input: `"abc"`, expectError: true},
		{name: "Negative", input: `"-5"`, expectError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tc.input), &id)
			if tc.expectError {
				if err == nil {
					t.Errorf("expected error for %s, got id %d", tc.input, id)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if id != tc.expected {
				t.Errorf("got %d, expected %d", id, tc.expected)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	bytes, err := json.Marshal(struct {
		ID ID `json:"id"`
	}{ID: 42})
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes) != `{"id":"42"}` {
		t.Errorf("got %s", bytes)
	}
}
