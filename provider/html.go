package provider

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// ParseHTML extracts an overall status indicator from a status page that has
// no JSON API. It looks for the class-based markers the common status page
// frameworks render, falling back to a text search over the page banner.
// HTML pages yield no incident detail, only the overall status.
func ParseHTML(r io.Reader, slug string, fetchedAt time.Time) (*status.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse status page html: %w", err)
	}

	return &status.Snapshot{
		Slug:      slug,
		Status:    scrapeOverallStatus(doc),
		FetchedAt: fetchedAt,
	}, nil
}

// indicatorClasses maps the class suffixes Statuspage-style pages put on
// their banner element to raw indicator strings.
var indicatorClasses = []struct {
	class     string
	indicator string
}{
	{"status-none", "none"},
	{"status-minor", "minor"},
	{"status-major", "major"},
	{"status-critical", "critical"},
	{"status-maintenance", "maintenance"},
}

func scrapeOverallStatus(doc *goquery.Document) status.Status {
	// Banner classes first: the most reliable marker.
	for _, ic := range indicatorClasses {
		if doc.Find("."+ic.class).Length() > 0 {
			return NormalizeIndicator(ic.indicator)
		}
	}

	// Fall back to the banner text.
	banner := strings.ToLower(strings.TrimSpace(
		doc.Find(".page-status, .status-banner, .overall-status, [data-status]").First().Text()))
	if banner == "" {
		banner = strings.ToLower(doc.Find("title").Text())
	}

	switch {
	case strings.Contains(banner, "all systems operational"), strings.Contains(banner, "operational"):
		return status.Operational
	case strings.Contains(banner, "major outage"):
		return status.MajorOutage
	case strings.Contains(banner, "partial outage"):
		return status.PartialOutage
	case strings.Contains(banner, "degraded"):
		return status.Degraded
	case strings.Contains(banner, "maintenance"):
		return status.Maintenance
	default:
		return status.Unknown
	}
}
