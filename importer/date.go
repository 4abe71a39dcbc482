package importer

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date holds a commit or tag timestamp. Timestamp is used for all
// arithmetic and comparison; RawZone is the verbatim timezone text from
// the stream (either a signed HHMM offset or an RFC-822 zone) and is
// preserved purely for round-tripping, per spec.md §3 — reposurgeon's own
// Date type makes the identical trade-off (newDate/String in
// surgeon/reposurgeon.go).
type Date struct {
	Timestamp time.Time
	RawZone   string
}

func (d Date) String() string {
	return fmt.Sprintf("%d %s", d.Timestamp.Unix(), d.RawZone)
}

var gitRawDateRE = regexp.MustCompile(`^\d+\s+[+-]\d{4}$`)

// ParseDate accepts the two forms spec.md §3 calls out: "<unix-seconds>
// <±HHMM>" (git's native raw format) or RFC-822.
func ParseDate(text string) (Date, error) {
	text = strings.TrimSpace(text)
	var d Date
	if gitRawDateRE.MatchString(text) {
		fields := strings.Fields(text)
		secs, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return d, fmt.Errorf("malformed unix timestamp %q: %v", fields[0], err)
		}
		loc, err := locationFromOffset(fields[1])
		if err != nil {
			return d, err
		}
		d.Timestamp = time.Unix(secs, 0).In(loc)
		d.RawZone = fields[1]
		return d, nil
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, text); err == nil {
			d.Timestamp = t
			d.RawZone = t.Format("-0700")
			if idx := strings.LastIndexByte(text, ' '); idx >= 0 {
				// Preserve whatever zone text the stream actually used.
				d.RawZone = text[idx+1:]
			}
			return d, nil
		}
	}
	return d, fmt.Errorf("not a valid date: %q", text)
}

func locationFromOffset(offset string) (*time.Location, error) {
	if len(offset) != 5 || (offset[0] != '+' && offset[0] != '-') {
		return nil, fmt.Errorf("malformed zone offset %q", offset)
	}
	sign := 1
	if offset[0] == '-' {
		sign = -1
	}
	hh, err := strconv.Atoi(offset[1:3])
	if err != nil {
		return nil, fmt.Errorf("malformed zone offset %q: %v", offset, err)
	}
	mm, err := strconv.Atoi(offset[3:5])
	if err != nil {
		return nil, fmt.Errorf("malformed zone offset %q: %v", offset, err)
	}
	secs := sign * (hh*3600 + mm*60)
	return time.FixedZone(offset, secs), nil
}

var attributionRE = regexp.MustCompile(`([^<]*)<([^>]*)>\s*(.*)`)

// ParseAttribution parses a Git-style "author"/"committer"/"tagger" line
// body into its three fields, grounded on reposurgeon's
// parseAttributionLine/newAttribution.
func ParseAttribution(line string) (Attribution, error) {
	var a Attribution
	m := attributionRE.FindSubmatch(bytes.TrimSpace([]byte(line)))
	if m == nil {
		return a, fmt.Errorf("malformed attribution %q", line)
	}
	name := strings.TrimSpace(string(m[1]))
	email := strings.TrimSpace(string(m[2]))
	datestamp := strings.TrimSpace(string(m[3]))
	date, err := ParseDate(datestamp)
	if err != nil {
		return a, fmt.Errorf("malformed attribution date %q in %q: %v", datestamp, line, err)
	}
	a.Name = name
	a.Email = email
	a.Date = date
	return a, nil
}
