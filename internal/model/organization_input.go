package model

// TrialSignupInput 试用注册请求
type TrialSignupInput struct {
	OrganizationName string `json:"organization_name" validate:"required,max=200"`
	OrganizationType string `json:"organization_type" validate:"required,org_type"`
	ContactName      string `json:"contact_name" validate:"required,max=200"`
	ContactEmail     string `json:"contact_email" validate:"required,email"`
}

// UpgradeInput 付款确认后的升级请求
type UpgradeInput struct {
	PaymentReference string `json:"payment_reference" validate:"max=255"`
}
