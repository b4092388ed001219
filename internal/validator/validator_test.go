package validator_test

import (
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/validator"
	"fmt"
	"strings"
	"testing"
)

func TestMessageContent(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		expectedError error
	}{
		// valid cases
		{
			name:          "Valid: Short message",
			content:       "hello",
			expectedError: nil,
		},
		{
			name:          "Valid: Surrounding whitespace",
			content:       "  hello  ",
			expectedError: nil,
		},
		{
			name:          "Valid: Maximum length",
			content:       strings.Repeat("a", validator.MaxContentLength),
			expectedError: nil,
		},
		{
			name:          "Valid: Multibyte characters count once",
			content:       strings.Repeat("é", validator.MaxContentLength),
			expectedError: nil,
		},

		// empty
		{
			name:          "Error: Empty",
			content:       "",
			expectedError: fmt.Errorf("empty_content"),
		},
		{
			name:          "Error: Only whitespace",
			content:       " \n\t ",
			expectedError: fmt.Errorf("empty_content"),
		},

		// too long
		{
			name:          "Error: One character too long",
			content:       strings.Repeat("a", validator.MaxContentLength+1),
			expectedError: fmt.Errorf("long_content"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.MessageContent(tc.content)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("MessageContent() failed unexpectedly: got error %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Errorf("MessageContent() passed unexpectedly: got nil, want error %v", tc.expectedError)
				return
			}

			if err.Error() != tc.expectedError.Error() {
				t.Errorf("MessageContent() got error %q, want error %q", err.Error(), tc.expectedError.Error())
			}
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        models.Status
		expectedError error
	}{
		{
			name:          "Valid: Online",
			status:        models.StatusOnline,
			expectedError: nil,
		},
		{
			name:          "Valid: Do not disturb",
			status:        "dnd",
			expectedError: nil,
		},
		{
			name:          "Error: Empty",
			status:        "",
			expectedError: fmt.Errorf("unknown_status"),
		},
		{
			name:          "Error: Wrong case",
			status:        "Online",
			expectedError: fmt.Errorf("unknown_status"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Status(tc.status)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("Status(%q) failed unexpectedly: got error %v, want nil", tc.status, err)
				}
				return
			}

			if err == nil || err.Error() != tc.expectedError.Error() {
				t.Errorf("Status(%q) got error %v, want error %q", tc.status, err, tc.expectedError.Error())
			}
		})
	}
}

func TestActivity(t *testing.T) {
	tests := []struct {
		name          string
		activity      *models.Activity
		expectedError error
	}{
		{
			name:          "Valid: No activity",
			activity:      nil,
			expectedError: nil,
		},
		{
			name:          "Valid: Named activity",
			activity:      &models.Activity{Name: "chess"},
			expectedError: nil,
		},
		{
			name:          "Error: Blank name",
			activity:      &models.Activity{Name: "  "},
			expectedError: fmt.Errorf("empty_activity"),
		},
		{
			name:          "Error: Long name",
			activity:      &models.Activity{Name: strings.Repeat("a", validator.MaxActivityLength+1)},
			expectedError: fmt.Errorf("long_activity"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Activity(tc.activity)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("Activity() failed unexpectedly: got error %v, want nil", err)
				}
				return
			}

			if err == nil || err.Error() != tc.expectedError.Error() {
				t.Errorf("Activity() got error %v, want error %q", err, tc.expectedError.Error())
			}
		})
	}
}
