// Package render turns search results into the markup the page shows.
package render

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hyperifyio/goferret/internal/search"
)

// EncodeEntities replaces every rune in U+00A0..U+9999 and each of
// \ < > & ' " / with a numeric character reference.
func EncodeEntities(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if needsEncoding(r) {
			b.WriteString("&#")
			b.WriteString(strconv.Itoa(int(r)))
			b.WriteByte(';')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func needsEncoding(r rune) bool {
	switch r {
	case '\\', '<', '>', '&', '\'', '"', '/':
		return true
	}
	return r >= 0xA0 && r <= 0x9999
}

// Date returns the YYYY-MM-DD form of an ISO-8601 result date and whether
// one should be shown at all.
func Date(raw string) (string, bool) {
	if raw == search.NoDate {
		return "", false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC().Format("2006-01-02"), true
	}
	if len(raw) >= 10 {
		return raw[:10], true
	}
	return "", false
}

// Item returns the inner markup of one result list item:
//
//	<a href="LINK" target="_blank">TITLE</a><p>DESCRIPTION<br><span class="ts">DATE</span></p>
//
// The description goes through EncodeEntities; link and title are escaped.
// Either paragraph part is omitted when absent.
func Item(r search.Result) string {
	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(r.Link))
	b.WriteString(`" target="_blank">`)
	b.WriteString(html.EscapeString(r.Title))
	b.WriteString(`</a><p>`)
	if r.Description != "" {
		b.WriteString(EncodeEntities(r.Description))
		b.WriteString(`<br>`)
	}
	if d, ok := Date(r.Date); ok {
		b.WriteString(`<span class="ts">`)
		b.WriteString(html.EscapeString(d))
		b.WriteString(`</span>`)
	}
	b.WriteString(`</p>`)
	return b.String()
}
