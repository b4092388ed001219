package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chatapp-gateway/internal/models"
)

const (
	MaxContentLength  = 2000
	MaxActivityLength = 128
)

func MessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("empty_content")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return fmt.Errorf("long_content")
	}
	return nil
}

func Status(status models.Status) error {
	switch status {
	case models.StatusOnline, models.StatusIdle, models.StatusDoNotDisturb, models.StatusOffline:
		return nil
	}
	return fmt.Errorf("unknown_status")
}

func Activity(activity *models.Activity) error {
	if activity == nil {
		return nil
	}
	if strings.TrimSpace(activity.Name) == "" {
		return fmt.Errorf("empty_activity")
	}
	if utf8.RuneCountInString(activity.Name) > MaxActivityLength {
		return fmt.Errorf("long_activity")
	}
	return nil
}
