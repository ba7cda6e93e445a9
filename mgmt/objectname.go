package mgmt

import (
	"fmt"
	"strings"
)

const (
	statisticsDomain = "plat.cache"
	statisticsType   = "CacheStatistics"
)

// Characters reserved by the name syntax, plus pattern characters.
const reservedNameChars = ",:=\n*?"

var sanitizeReplacer = strings.NewReplacer(",", ".", ":", ".", "=", ".", "\n", ".")

// ObjectName is the structured name of a managed object,
// in the canonical form domain:key=value[,key=value...].
type ObjectName struct {
	name string
}

// NewObjectName builds a name from a domain and key/value pairs.
// Every part is checked against the reserved characters.
func NewObjectName(domain string, pairs ...string) (ObjectName, error) {
	if domain == "" {
		return ObjectName{}, fmt.Errorf("object name domain is empty")
	}
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ObjectName{}, fmt.Errorf("object name needs key=value pairs, got %d parts", len(pairs))
	}
	if err := checkNamePart(domain); err != nil {
		return ObjectName{}, err
	}
	var sb strings.Builder
	sb.WriteString(domain)
	sb.WriteByte(':')
	for i := 0; i < len(pairs); i += 2 {
		key, value := pairs[i], pairs[i+1]
		if key == "" {
			return ObjectName{}, fmt.Errorf("object name key is empty")
		}
		if err := checkNamePart(key); err != nil {
			return ObjectName{}, err
		}
		if err := checkNamePart(value); err != nil {
			return ObjectName{}, err
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(value)
	}
	return ObjectName{name: sb.String()}, nil
}

func checkNamePart(part string) error {
	if strings.ContainsAny(part, reservedNameChars) {
		return fmt.Errorf("object name part %q contains reserved characters", part)
	}
	return nil
}

// CacheStatisticsName composes the name a cache's statistics source is
// registered under. Both arguments must already be sanitized.
func CacheStatisticsName(cacheManager string, cacheName string) (ObjectName, error) {
	return NewObjectName(statisticsDomain,
		"type", statisticsType,
		"CacheManager", cacheManager,
		"Cache", cacheName)
}

// Sanitize replaces every character that would break the name syntax
// with a period. An empty string stays empty.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return sanitizeReplacer.Replace(s)
}

func (o ObjectName) String() string {
	return o.name
}

// IsZero reports a name that was never constructed.
func (o ObjectName) IsZero() bool {
	return o.name == ""
}
