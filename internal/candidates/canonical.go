package candidates

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var linkedInJobPath = regexp.MustCompile(`/jobs/view/(?:[^/]*-)?(\d+)`)

// CanonicalKey normalizes a URL into a natural key that is stable across
// scrapes: lower-case scheme and host, https, no fragment, no tracking
// parameters, sorted query, no trailing slash. LinkedIn job URLs collapse to
// /jobs/view/<id> and lose LinkedIn's own tracking parameters. Input that is not an absolute URL is returned trimmed.
func CanonicalKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimSuffix(u.Host, ":443")
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	q := u.Query()
	for k := range q {
		if isTrackingParam(k) {
			q.Del(k)
		}
	}

	if strings.HasSuffix(u.Host, "linkedin.com") {
		u.Host = "www.linkedin.com"
		for k := range q {
			if isLinkedInTrackingParam(k) {
				q.Del(k)
			}
		}
		if m := linkedInJobPath.FindStringSubmatch(u.Path); m != nil {
			u.Path = "/jobs/view/" + m[1]
			q = url.Values{}
		} else if id := q.Get("currentJobId"); id != "" {
			u.Path = "/jobs/view/" + id
			q = url.Values{}
		}
	}

	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	u.RawPath = ""
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

func isTrackingParam(k string) bool {
	lk := strings.ToLower(k)
	if strings.HasPrefix(lk, "utm_") {
		return true
	}
	switch lk {
	case "gclid", "fbclid", "msclkid", "mc_cid", "mc_eid", "mkt_tok":
		return true
	}
	return false
}

// isLinkedInTrackingParam matches parameters LinkedIn adds to search and
// recommendation links. Other hosts may use the same names for real content.
func isLinkedInTrackingParam(k string) bool {
	switch strings.ToLower(k) {
	case "refid", "trackingid", "trk", "ref", "src", "ebp", "position", "pagenum":
		return true
	}
	return false
}
