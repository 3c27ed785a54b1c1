package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/amishk599/jobscout/internal/model"
)

// Upstream query parameter codes. Values missing from a table mean "no filter".
var (
	jobTypeCodes = map[string]string{
		"full-time":  "F",
		"part-time":  "P",
		"contract":   "C",
		"temporary":  "T",
		"volunteer":  "V",
		"internship": "I",
		"other":      "O",
	}
	remoteCodes = map[string]string{
		"on-site": "1",
		"onsite":  "1",
		"remote":  "2",
		"hybrid":  "3",
	}
	experienceCodes = map[string]string{
		"internship": "1",
		"entry":      "2",
		"associate":  "3",
		"mid-senior": "4",
		"director":   "5",
		"executive":  "6",
	}
	datePostedCodes = map[string]string{
		"past-24h":   "r86400",
		"past-week":  "r604800",
		"past-month": "r2592000",
	}
	sortCodes = map[string]string{
		"recent":   "DD",
		"relevant": "R",
	}
)

// facetParams resolves the facet codes for a normalized query. The legacy
// job type "remote" is treated as a workplace filter.
func facetParams(q model.Query) url.Values {
	v := url.Values{}
	remote := remoteCodes[q.Remote]
	if remote == "" && q.JobType == "remote" {
		remote = remoteCodes["remote"]
	}
	set := func(key, code string) {
		if code != "" {
			v.Set(key, code)
		}
	}
	set("f_WT", remote)
	set("f_JT", jobTypeCodes[q.JobType])
	set("f_E", experienceCodes[q.Experience])
	set("f_TPR", datePostedCodes[q.DatePosted])
	set("sortBy", sortCodes[q.SortBy])
	return v
}

// BuildSearchURL returns the upstream search page URL for q at the given
// result offset. q must already be normalized.
func BuildSearchURL(base string, q model.Query, start int) string {
	v := facetParams(q)
	v.Set("keywords", q.Keywords)
	v.Set("location", q.Location)
	v.Set("start", strconv.Itoa(start))
	return base + "?" + v.Encode()
}

// ListingURL returns the canonical URL of a listing.
func ListingURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + id + "/"
}

// Fingerprint is the cache key for a normalized query. Facet values are
// reduced to their upstream codes so spellings that filter identically share
// an entry.
func Fingerprint(q model.Query) string {
	f := facetParams(q)
	key := strings.Join([]string{
		q.Keywords,
		q.Location,
		f.Get("f_JT"),
		f.Get("f_WT"),
		f.Get("f_E"),
		f.Get("f_TPR"),
		f.Get("sortBy"),
		strconv.Itoa(q.Page),
		strconv.Itoa(q.MaxResults),
		strconv.FormatBool(q.SkipDescriptions),
	}, "\x1f")
	return fmt.Sprintf("search:%016x", xxhash.Sum64String(key))
}

func descriptionKey(id string) string {
	return "desc:" + id
}
