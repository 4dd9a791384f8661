// Package imaging decodes embedded image payloads supplied by API clients.
package imaging

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"equiptrack/internal/common"
)

// dataURIPattern matches "data:image/<subtype>;base64,<payload>".
var dataURIPattern = regexp.MustCompile(`^data:image/(\w+);base64,(.+)$`)

// DecodeDataURI parses a data-URI-embedded image and returns the declared
// subtype ("png", "jpeg", ...) together with the decoded payload bytes.
// Any string that does not match the data-URI image shape, or whose payload
// is not valid base64, fails with common.ErrorInvalidImageFormat.
func DecodeDataURI(s string) (string, []byte, error) {
	m := dataURIPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, fmt.Errorf("%w: not a base64 image data URI", common.ErrorInvalidImageFormat)
	}

	subtype := m[1]

	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrorInvalidImageFormat, err)
	}

	return subtype, data, nil
}
