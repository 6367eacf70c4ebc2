// Package license derives an organization's license lifecycle state from its
// stored dates and decides which features that state may use.
//
// Everything here is pure: functions take their full input and return new
// values. Time-dependent functions come in pairs, a plain form that uses
// time.Now and an ...At form that takes the reference time explicitly.
package license

import (
	"math"
	"time"
)

// TrialLengthDays is the length of every trial in calendar days.
const TrialLengthDays = 14

// State is the license lifecycle state of an organization.
type State string

const (
	// StateTrial is a time-boxed trial with restricted features.
	StateTrial State = "trial"
	// StateLicensed is a paid license. It is permanent.
	StateLicensed State = "licensed"
	// StateExpired is a trial that ran out, or a record without usable dates.
	StateExpired State = "expired"
)

// States returns all lifecycle states.
func States() []State {
	return []State{StateTrial, StateLicensed, StateExpired}
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StateTrial, StateLicensed, StateExpired:
		return true
	}
	return false
}

// OrganizationType classifies the licensed organization.
type OrganizationType string

const (
	OrgWorkforceBoard        OrganizationType = "workforce_board"
	OrgTrainingProvider      OrganizationType = "training_provider"
	OrgNonprofit             OrganizationType = "nonprofit"
	OrgGovernment            OrganizationType = "government"
	OrgApprenticeshipSponsor OrganizationType = "apprenticeship_sponsor"
	OrgOther                 OrganizationType = "other"
)

// OrganizationTypes returns all organization types.
func OrganizationTypes() []OrganizationType {
	return []OrganizationType{
		OrgWorkforceBoard,
		OrgTrainingProvider,
		OrgNonprofit,
		OrgGovernment,
		OrgApprenticeshipSponsor,
		OrgOther,
	}
}

// IsValid reports whether t is a known organization type.
func (t OrganizationType) IsValid() bool {
	for _, valid := range OrganizationTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Info is one organization's license lifecycle record. A nil timestamp means
// the date is absent. The state is not part of the record; use StateAt.
type Info struct {
	TrialStartedAt   *time.Time       `json:"trial_started_at,omitempty"`
	TrialExpiresAt   *time.Time       `json:"trial_expires_at,omitempty"`
	LicensedAt       *time.Time       `json:"licensed_at,omitempty"`
	OrganizationName string           `json:"organization_name"`
	OrganizationType OrganizationType `json:"organization_type"`
	ContactName      string           `json:"contact_name"`
	ContactEmail     string           `json:"contact_email"`
}

// State returns the current lifecycle state of the record.
func (i Info) State() State {
	return DetermineState(i)
}

// StateAt returns the lifecycle state of the record at now.
func (i Info) StateAt(now time.Time) State {
	return DetermineStateAt(i, now)
}

// CalculateTrialExpiration returns start plus TrialLengthDays calendar days.
// The wall-clock time of day is kept across DST changes.
func CalculateTrialExpiration(start time.Time) time.Time {
	return start.AddDate(0, 0, TrialLengthDays)
}

// TrialDaysRemaining returns the whole days left before expiresAt, rounded up.
func TrialDaysRemaining(expiresAt *time.Time) int {
	return TrialDaysRemainingAt(expiresAt, time.Now())
}

// TrialDaysRemainingAt returns ceil((expiresAt - now) / 24h), never below 0.
// A nil expiresAt has no days remaining.
func TrialDaysRemainingAt(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return 0
	}
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff) / float64(24*time.Hour)))
}

// IsTrialExpired reports whether the trial ending at expiresAt is over.
func IsTrialExpired(expiresAt *time.Time) bool {
	return IsTrialExpiredAt(expiresAt, time.Now())
}

// IsTrialExpiredAt reports whether now is after expiresAt. A nil expiresAt
// counts as expired.
func IsTrialExpiredAt(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return now.After(*expiresAt)
}

// DetermineState returns the current lifecycle state of info.
func DetermineState(info Info) State {
	return DetermineStateAt(info, time.Now())
}

// DetermineStateAt returns the lifecycle state of info at now. First match wins:
//  1. LicensedAt set: licensed, whatever the trial dates say.
//  2. Both trial dates set: trial, or expired once the window has passed.
//  3. Anything else: expired.
func DetermineStateAt(info Info, now time.Time) State {
	if info.LicensedAt != nil {
		return StateLicensed
	}
	if info.TrialStartedAt != nil && info.TrialExpiresAt != nil {
		if IsTrialExpiredAt(info.TrialExpiresAt, now) {
			return StateExpired
		}
		return StateTrial
	}
	return StateExpired
}

// CreateTrialLicense starts a new trial record now.
func CreateTrialLicense(orgName string, orgType OrganizationType, contactName, contactEmail string) Info {
	return CreateTrialLicenseAt(orgName, orgType, contactName, contactEmail, time.Now())
}

// CreateTrialLicenseAt starts a new trial record at now. It is the only way
// new records come into existence.
func CreateTrialLicenseAt(orgName string, orgType OrganizationType, contactName, contactEmail string, now time.Time) Info {
	started := now
	expires := CalculateTrialExpiration(now)
	return Info{
		TrialStartedAt:   &started,
		TrialExpiresAt:   &expires,
		OrganizationName: orgName,
		OrganizationType: orgType,
		ContactName:      contactName,
		ContactEmail:     contactEmail,
	}
}

// UpgradeToLicense converts info to a paid license now.
func UpgradeToLicense(info Info) Info {
	return UpgradeToLicenseAt(info, time.Now())
}

// UpgradeToLicenseAt returns a copy of info licensed at now. Trial dates are
// kept as history. Upgrading an already licensed record moves LicensedAt to
// now and leaves the state licensed.
func UpgradeToLicenseAt(info Info, now time.Time) Info {
	licensed := now
	upgraded := info
	upgraded.TrialStartedAt = copyTime(info.TrialStartedAt)
	upgraded.TrialExpiresAt = copyTime(info.TrialExpiresAt)
	upgraded.LicensedAt = &licensed
	return upgraded
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
