package protocol

import "unicode/utf8"

// PackValue prepares host text for the wire. Text that is not valid UTF-8
// cannot be carried losslessly and packs to "".
func PackValue(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	return s
}

// UnpackValue converts a decoded wire value to host text. Anything that is
// not a valid UTF-8 string unpacks to "".
func UnpackValue(v any) string {
	s, ok := v.(string)
	if !ok || !utf8.ValidString(s) {
		return ""
	}
	return s
}
