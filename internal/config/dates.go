package config

import "time"

// parseDate parses YYYY-MM-DD as midnight UTC in Unix ms.
func parseDate(s string) (int64, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
