package narration

import "strings"

// PlatformInfo is the read-only platform probe used by the gesture gate.
type PlatformInfo struct {
	OS        string `json:"os"`
	UserAgent string `json:"userAgent"`
}

// gestureBlockedMarkers identify user agents whose autoplay policy blocks
// unsolicited audio playback.
var gestureBlockedMarkers = []string{"iPad", "iPhone", "iPod"}

// RequiresGesture reports whether speech may only start from a user
// gesture on this platform. Pure decision function; it never attempts
// playback itself.
func RequiresGesture(info PlatformInfo) bool {
	if strings.EqualFold(info.OS, "ios") {
		return true
	}
	for _, marker := range gestureBlockedMarkers {
		if strings.Contains(info.UserAgent, marker) {
			return true
		}
	}
	return false
}
