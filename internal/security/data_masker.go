package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRe      = regexp.MustCompile(`(?i)email`)
	phoneRe      = regexp.MustCompile(`(?i)phone`)
	ssnRe        = regexp.MustCompile(`(?i)ssn|social_security`)
	creditCardRe = regexp.MustCompile(`(?i)credit_card|card_number`)
	fullMaskRe   = regexp.MustCompile(`(?i)password|secret|token|api_key|access_key|private_key`)
)

// DataMasker masks sensitive argument values before they reach the log.
type DataMasker struct {
	sensitiveKeys []string
}

func NewDataMasker(sensitiveKeys []string) *DataMasker {
	return &DataMasker{sensitiveKeys: sensitiveKeys}
}

// MaskArguments returns a copy of args with sensitive keys masked. Nested
// objects and arrays are walked.
func (m *DataMasker) MaskArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = m.maskAny(k, v)
	}
	return out
}

func (m *DataMasker) maskAny(key string, v any) any {
	switch val := v.(type) {
	case map[string]any:
		return m.MaskArguments(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = m.maskAny(key, item)
		}
		return items
	case nil:
		return nil
	}
	if m.isSensitive(key) {
		return m.maskValue(key, fmt.Sprintf("%v", v))
	}
	return v
}

func (m *DataMasker) isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range m.sensitiveKeys {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return emailRe.MatchString(key) || phoneRe.MatchString(key) ||
		ssnRe.MatchString(key) || creditCardRe.MatchString(key) || fullMaskRe.MatchString(key)
}

func (m *DataMasker) maskValue(key, val string) string {
	lower := strings.ToLower(key)
	switch {
	case emailRe.MatchString(lower):
		return maskEmail(val)
	case phoneRe.MatchString(lower):
		return maskDigits(val, "***-***-")
	case ssnRe.MatchString(lower):
		return "***-**-****"
	case creditCardRe.MatchString(lower):
		return maskDigits(val, "****-****-****-")
	default:
		return "***"
	}
}

// maskEmail: "john.doe@example.com" → "jo***@***.com"
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}
	visible := min(2, len(local))
	ext := domain[strings.LastIndex(domain, ".")+1:]
	return fmt.Sprintf("%s***@***.%s", local[:visible], ext)
}

// maskDigits keeps the last four digits behind prefix.
func maskDigits(s, prefix string) string {
	var digits strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	d := digits.String()
	if len(d) < 4 {
		return prefix + "****"
	}
	return prefix + d[len(d)-4:]
}
