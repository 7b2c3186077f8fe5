package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildArchivePath places an imported export under prefix, partitioned by
// the UTC import date.
func BuildArchivePath(prefix string, importedAt time.Time, fileName string) (string, error) {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return "", fmt.Errorf("archive prefix is required")
	}
	for _, component := range strings.Split(trimmed, "/") {
		if err := validatePathComponent(component, "archive prefix"); err != nil {
			return "", err
		}
	}
	if err := validatePathComponent(fileName, "file name"); err != nil {
		return "", err
	}

	ts := importedAt.UTC()
	return path.Join(
		trimmed,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fileName,
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
