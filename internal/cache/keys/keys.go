package keys

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
)

const (
	RequestPrefix = "request-"
	TokenSuffix   = "-token"
)

// Fingerprint derives the cache identity of a query from its non-empty fields.
// The page number is not part of it.
func Fingerprint(q model.Query) string {
	fields := map[string]string{}
	if q.Origin != nil {
		if q.Origin.Latitude != 0 {
			fields["lat"] = formatCoord(q.Origin.Latitude)
		}
		if q.Origin.Longitude != 0 {
			fields["lon"] = formatCoord(q.Origin.Longitude)
		}
	}
	if s := q.Sort.String(); s != "" {
		fields["sortby"] = s
	}
	if q.Text != "" {
		fields["text"] = q.Text
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(fields[k])
	}
	return RequestPrefix + base64.StdEncoding.EncodeToString([]byte(b.String()))
}

// TokenKey is the primary key of the continuation-token table for a fingerprint.
func TokenKey(fingerprint string) string {
	return fingerprint + TokenSuffix
}

// BaseFingerprint strips the token suffix so both tables map to one query identity.
func BaseFingerprint(key string) string {
	return strings.TrimSuffix(key, TokenSuffix)
}

func PageField(page int) string {
	return strconv.Itoa(page)
}

// Compose builds the flat store key "<partition>:<key>:<subkey>".
func Compose(partition, key, subkey string) string {
	p := sanitizePartition(strings.TrimSpace(partition))
	if p == "" {
		return key + ":" + subkey
	}
	return p + ":" + key + ":" + subkey
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitizePartition(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
