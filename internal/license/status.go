package license

import (
	"fmt"
	"time"
)

// Banner is the severity of the license banner shown to users.
type Banner string

const (
	BannerNone    Banner = ""
	BannerInfo    Banner = "info"
	BannerWarning Banner = "warning"
	BannerError   Banner = "error"
)

// ExpiredStatusMessage is shown while the organization is expired.
const ExpiredStatusMessage = "Trial expired — request a license to continue"

// StatusMessage returns the banner text for state using the current time.
func StatusMessage(state State, expiresAt *time.Time) string {
	return StatusMessageAt(state, expiresAt, time.Now())
}

// StatusMessageAt returns the banner text for state at now. Licensed
// organizations get no banner.
func StatusMessageAt(state State, expiresAt *time.Time, now time.Time) string {
	switch state {
	case StateTrial:
		days := TrialDaysRemainingAt(expiresAt, now)
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		return fmt.Sprintf("Trial mode — %d %s remaining", days, unit)
	case StateExpired:
		return ExpiredStatusMessage
	}
	return ""
}

// LicenseBannerType returns the banner severity for state. BannerWarning is
// never returned.
func LicenseBannerType(state State) Banner {
	switch state {
	case StateTrial:
		return BannerInfo
	case StateExpired:
		return BannerError
	}
	return BannerNone
}
