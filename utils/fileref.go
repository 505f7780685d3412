package utils

import (
	"fmt"
	"sort"
	"time"
)

// FileRef points at one product instance on storage together with its
// temporal validity window. Values are immutable after creation.
type FileRef struct {
	Url       string
	StartTime time.Time
	EndTime   time.Time
	MimeType  string
}

func NewFileRef(url string, startTime, endTime time.Time, mimeType string) FileRef {
	return FileRef{Url: url, StartTime: startTime, EndTime: endTime, MimeType: mimeType}
}

var timeFormats = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// GetTimeFromString parses the date/time notations found in product
// names and inventory records. Dates without a time component resolve
// to midnight UTC.
func GetTimeFromString(timeStr string) (time.Time, error) {
	for _, format := range timeFormats {
		t, err := time.ParseInLocation(format, timeStr, time.UTC)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time format: %s", timeStr)
}

// SortFileRefs orders file references ascending by start time. The sort
// is stable so references sharing a start time keep their original
// relative order.
func SortFileRefs(fileRefs []FileRef) {
	sort.SliceStable(fileRefs, func(i, j int) bool {
		return fileRefs[i].StartTime.Before(fileRefs[j].StartTime)
	})
}
