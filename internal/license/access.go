package license

import (
	"errors"
	"fmt"
)

// Feature is a stable key for one gated capability.
type Feature string

const (
	FeatureUINavigation     Feature = "ui_navigation"
	FeatureEligibilityFlow  Feature = "eligibility_flow"
	FeatureProgramSetup     Feature = "program_setup"
	FeatureAdminDashboard   Feature = "admin_dashboard"
	FeatureReportingView    Feature = "reporting_view"
	FeatureBrandingPreview  Feature = "branding_preview"
	FeatureDataExport       Feature = "production_data_export"
	FeatureBulkImports      Feature = "bulk_imports"
	FeatureEmailSMSSending  Feature = "email_sms_sending"
	FeatureCertificates     Feature = "certificate_issuance"
	FeatureIntegrations     Feature = "integrations"
	FeatureMultiAdmin       Feature = "multi_admin_creation"
	FeatureEnvSecrets       Feature = "environment_secrets"
	FeatureReportingExport  Feature = "reporting_export"
	FeatureEmployerWorkflow Feature = "employer_workflows"
	FeatureBrandingReplace  Feature = "branding_replacement"
	FeatureEnvConfiguration Feature = "environment_configuration"
)

// FeatureAccess says in which states a feature is usable.
type FeatureAccess struct {
	Trial       bool   `json:"trial"`
	Licensed    bool   `json:"licensed"`
	Expired     bool   `json:"expired"`
	Description string `json:"description"`
}

// Allows reports whether the feature is usable in state s.
func (fa FeatureAccess) Allows(s State) bool {
	switch s {
	case StateTrial:
		return fa.Trial
	case StateLicensed:
		return fa.Licensed
	case StateExpired:
		return fa.Expired
	}
	return false
}

// featureOrder fixes the listing order of the matrix.
var featureOrder = []Feature{
	FeatureUINavigation,
	FeatureEligibilityFlow,
	FeatureProgramSetup,
	FeatureAdminDashboard,
	FeatureReportingView,
	FeatureBrandingPreview,
	FeatureDataExport,
	FeatureBulkImports,
	FeatureEmailSMSSending,
	FeatureCertificates,
	FeatureIntegrations,
	FeatureMultiAdmin,
	FeatureEnvSecrets,
	FeatureReportingExport,
	FeatureEmployerWorkflow,
	FeatureBrandingReplace,
	FeatureEnvConfiguration,
}

// featureAccess is the policy table. Expired grants nothing; a feature open
// in expired must also be open in trial, and trial must imply licensed.
var featureAccess = map[Feature]FeatureAccess{
	FeatureUINavigation:     {Trial: true, Licensed: true, Description: "Navigation across the platform"},
	FeatureEligibilityFlow:  {Trial: true, Licensed: true, Description: "Eligibility and pathway flow"},
	FeatureProgramSetup:     {Trial: true, Licensed: true, Description: "Program setup"},
	FeatureAdminDashboard:   {Trial: true, Licensed: true, Description: "Admin dashboard"},
	FeatureReportingView:    {Trial: true, Licensed: true, Description: "Reporting views"},
	FeatureBrandingPreview:  {Trial: true, Licensed: true, Description: "Branding preview"},
	FeatureDataExport:       {Licensed: true, Description: "Production data export"},
	FeatureBulkImports:      {Licensed: true, Description: "Bulk imports"},
	FeatureEmailSMSSending:  {Licensed: true, Description: "Email and SMS sending"},
	FeatureCertificates:     {Licensed: true, Description: "Certificate issuance"},
	FeatureIntegrations:     {Licensed: true, Description: "Third-party integrations"},
	FeatureMultiAdmin:       {Licensed: true, Description: "Creating additional admins"},
	FeatureEnvSecrets:       {Licensed: true, Description: "Environment secrets"},
	FeatureReportingExport:  {Licensed: true, Description: "Reporting export"},
	FeatureEmployerWorkflow: {Licensed: true, Description: "Employer workflows"},
	FeatureBrandingReplace:  {Licensed: true, Description: "Branding replacement"},
	FeatureEnvConfiguration: {Licensed: true, Description: "Environment configuration"},
}

// ErrFeatureRestricted is the cause of every access denial.
var ErrFeatureRestricted = errors.New("feature restricted")

// AccessDeniedError is returned by RequireFeatureAccess. Error returns the
// restriction message unchanged.
type AccessDeniedError struct {
	Feature Feature
	State   State
	Message string
}

func (e *AccessDeniedError) Error() string {
	return e.Message
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrFeatureRestricted
}

// AllFeatures returns every feature key in table order.
func AllFeatures() []Feature {
	out := make([]Feature, len(featureOrder))
	copy(out, featureOrder)
	return out
}

// Lookup returns the table entry for f.
func Lookup(f Feature) (FeatureAccess, bool) {
	fa, ok := featureAccess[f]
	return fa, ok
}

// CanAccessFeature reports whether feature is usable in state. Unknown
// features and unknown states are denied.
func CanAccessFeature(feature Feature, state State) bool {
	fa, ok := featureAccess[feature]
	if !ok {
		return false
	}
	return fa.Allows(state)
}

// AccessibleFeatures returns the features usable in state.
func AccessibleFeatures(state State) []Feature {
	features := []Feature{}
	for _, f := range featureOrder {
		if CanAccessFeature(f, state) {
			features = append(features, f)
		}
	}
	return features
}

// RestrictedFeatures returns the features not usable in state.
func RestrictedFeatures(state State) []Feature {
	features := []Feature{}
	for _, f := range featureOrder {
		if !CanAccessFeature(f, state) {
			features = append(features, f)
		}
	}
	return features
}

// RestrictionMessage explains why feature is blocked in state, or returns ""
// when it is not blocked.
func RestrictionMessage(feature Feature, state State) string {
	if CanAccessFeature(feature, state) {
		return ""
	}
	name := string(feature)
	if fa, ok := featureAccess[feature]; ok && fa.Description != "" {
		name = fa.Description
	}

	switch state {
	case StateTrial:
		return fmt.Sprintf("%s is not available during the trial. Request a license to unlock it.", name)
	case StateExpired:
		return fmt.Sprintf("Your trial has expired. Request a license to continue using %s.", name)
	default:
		return fmt.Sprintf("%s is not available with your current license.", name)
	}
}

// RequireFeatureAccess returns an *AccessDeniedError when feature is blocked
// in state.
func RequireFeatureAccess(feature Feature, state State) error {
	if CanAccessFeature(feature, state) {
		return nil
	}
	return &AccessDeniedError{
		Feature: feature,
		State:   state,
		Message: RestrictionMessage(feature, state),
	}
}

// CanPerformAdminActions reports whether admin screens are usable at all.
// It is kept separately from the table.
func CanPerformAdminActions(state State) bool {
	return state == StateTrial || state == StateLicensed
}

// IsReadOnlyMode reports whether the organization may only read.
func IsReadOnlyMode(state State) bool {
	return state == StateExpired
}
