package workflow

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"xritd/internal/textutil"
)

const (
	noaaNameLength  = 48
	noaaNamePrefix  = 31
	himawariPrefix  = "IMG_DK"
	himawariKeepLen = 12
)

// OutputName builds the file name for a product. The default form is
// <satellite>-<region>-<tag>-<unix timestamp>.png. With noaa set, the source
// segment name is reused when it follows one of the known vendor patterns.
func OutputName(satellite, region, tag string, timestamp time.Time, source string, noaa bool) string {
	if noaa {
		if name, ok := vendorName(filepath.Base(source), timestamp.UTC()); ok {
			return textutil.SanitizeFileName(name)
		}
	}
	return defaultName(satellite, region, tag, timestamp)
}

func defaultName(satellite, region, tag string, timestamp time.Time) string {
	return textutil.SanitizeFileName(fmt.Sprintf("%s-%s-%s-%d.png", satellite, region, tag, timestamp.Unix()))
}

// vendorName handles the 48 character GOES pattern, whose day of year and
// time fields are replaced, and Himawari IMG_DK names such as
// IMG_DK01IR3_201705190350_002.
func vendorName(name string, ts time.Time) (string, bool) {
	switch {
	case len(name) == noaaNameLength:
		return fmt.Sprintf("%s%03d%s000.png", name[:noaaNamePrefix], ts.YearDay(), ts.Format("150405")), true
	case strings.HasPrefix(name, himawariPrefix) && len(name) >= himawariKeepLen:
		return name[:himawariKeepLen] + ts.Format("200601021504") + "_000.png", true
	default:
		return "", false
	}
}

// falseColorSource derives the false colour source name from the first
// visible segment.
func falseColorSource(visible string) string {
	if visible == "" {
		return ""
	}
	return strings.ReplaceAll(filepath.Base(visible), "VS", "FC")
}
