package domain

// MFAEnrollment is returned when a user starts TOTP enrollment. MFA is not
// active until a code generated from Secret has been confirmed.
type MFAEnrollment struct {
	Secret          string // base32
	ProvisioningURI string // otpauth://totp/...
	QRCode          string // data:image/png;base64,...
}
