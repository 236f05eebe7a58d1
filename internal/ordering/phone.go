package ordering

import (
	"fmt"
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^010\d{8}$`)

// NormalizePhone validates a mobile number (010 followed by eight digits,
// hyphens and spaces ignored) and formats it as 010-XXXX-XXXX.
func NormalizePhone(raw string) (string, error) {
	clean := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw))
	if !phonePattern.MatchString(clean) {
		return "", fmt.Errorf("%w: 유효하지 않은 전화번호 형식입니다. (예: 010-1234-5678)", ErrParsingFailed)
	}
	return clean[:3] + "-" + clean[3:7] + "-" + clean[7:], nil
}
