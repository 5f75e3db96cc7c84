package utils

const (
	OrganizationName                      = "Palms Estate"
	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"
	DefaultCurrency                       = "usd"
	SupportEmail                          = "support@palmsestate.com"
)
