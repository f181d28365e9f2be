package utils

import "strconv"

// Int64String renders an optional id for query parameters; nil yields "".
func Int64String(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
