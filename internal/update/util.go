package update

import (
	"strconv"
	"time"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// formatDue renders a completion time in local time, dropping the clock when
// it is exactly midnight.
func formatDue(t *time.Time) string {
	if t == nil {
		return ""
	}
	local := t.Local()
	if local.Hour() == 0 && local.Minute() == 0 {
		return local.Format("2006-01-02")
	}
	return local.Format("2006-01-02 15:04")
}
