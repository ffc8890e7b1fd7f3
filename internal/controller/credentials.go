package controller

import (
	"fmt"
	"strings"
)

// Credentials is the tagged union of per-brand credential variants.
// Adapters must reject any credential whose Kind does not match their own
// brand before attempting network I/O.
type Credentials interface {
	Kind() Brand
}

// ACInfinityCredentials authenticates against the AC Infinity cloud API.
type ACInfinityCredentials struct {
	Email    string
	Password string
}

// Kind returns BrandACInfinity.
func (ACInfinityCredentials) Kind() Brand { return BrandACInfinity }

// Validate checks the credential fields before any network use.
func (c ACInfinityCredentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return fmt.Errorf("%w: email and password are required", ErrAuthenticationFailed)
	}
	return nil
}

// ConnectionMethod selects how an Ecowitt controller is reached.
type ConnectionMethod string

// Ecowitt connection methods.
const (
	MethodPush  ConnectionMethod = "push"
	MethodTCP   ConnectionMethod = "tcp"
	MethodHTTP  ConnectionMethod = "http"
	MethodCloud ConnectionMethod = "cloud"
)

// EcowittCredentials carries everything any of the four Ecowitt connection
// methods may need. Which fields are required depends on Method:
//
//	push:  GatewayMAC (identity only, no outbound connection)
//	tcp:   GatewayIP
//	http:  GatewayIP
//	cloud: APIKey + ApplicationKey + GatewayMAC
type EcowittCredentials struct {
	Method         ConnectionMethod
	GatewayIP      string
	GatewayMAC     string
	APIKey         string
	ApplicationKey string
}

// Kind returns BrandEcowitt.
func (EcowittCredentials) Kind() Brand { return BrandEcowitt }

// Validate checks that the fields required by Method are present.
func (c EcowittCredentials) Validate() error {
	switch c.Method {
	case MethodPush:
		if strings.TrimSpace(c.GatewayMAC) == "" {
			return fmt.Errorf("%w: push method requires a gateway MAC", ErrAuthenticationFailed)
		}
	case MethodTCP, MethodHTTP:
		if strings.TrimSpace(c.GatewayIP) == "" {
			return fmt.Errorf("%w: %s method requires a gateway IP", ErrAuthenticationFailed, c.Method)
		}
	case MethodCloud:
		if c.APIKey == "" || c.ApplicationKey == "" || strings.TrimSpace(c.GatewayMAC) == "" {
			return fmt.Errorf("%w: cloud method requires api key, application key, and gateway MAC", ErrAuthenticationFailed)
		}
	default:
		return fmt.Errorf("%w: unknown connection method %q", ErrAuthenticationFailed, c.Method)
	}
	return nil
}

// TrolmasterCredentials is reserved for the Trolmaster integration.
type TrolmasterCredentials struct {
	Host string
}

// Kind returns BrandTrolmaster.
func (TrolmasterCredentials) Kind() Brand { return BrandTrolmaster }

// CheckKind verifies that creds are tagged for brand.
//
// Every adapter calls this first in Connect so a mis-routed credential
// object fails before any network call is attempted.
func CheckKind(brand Brand, creds Credentials) error {
	if creds == nil {
		return fmt.Errorf("%w: nil credentials for brand %s", ErrInvalidCredentialType, brand)
	}
	if creds.Kind() != brand {
		return fmt.Errorf("%w: got %s credentials, adapter is %s", ErrInvalidCredentialType, creds.Kind(), brand)
	}
	return nil
}
