package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidateEndpoint checks that endpoint is an absolute http(s) URL
func ValidateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https: %s", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host: %s", endpoint)
	}

	return nil
}

// ParseSdkCaseID parses an eForm SDK case id. Ids are positive integers.
func ParseSdkCaseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sdk case id %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("sdk case id must be positive: %d", id)
	}
	return id, nil
}
