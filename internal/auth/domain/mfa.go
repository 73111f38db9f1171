package domain

// EnrollResponse is returned by beginEnrollment: the shared secret and the
// otpauth:// provisioning URI for QR rendering.
type EnrollResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}
