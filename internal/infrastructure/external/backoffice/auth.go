package backoffice

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/go-ntlmssp"
)

// Authentication modes accepted in configuration
const (
	AuthModeWindowsDomain = "windows_domain"
	AuthModeBasic         = "basic"
)

// AuthConfig selects and parameterizes the authentication mode
type AuthConfig struct {
	Mode     string
	Domain   string
	Username string
	Password string
}

// Authenticator attaches credentials to back-office requests.
// Apply decorates each request; Transport wraps the client's round tripper once.
type Authenticator interface {
	Mode() string
	Apply(req *http.Request)
	Transport(base http.RoundTripper) http.RoundTripper
}

// BasicAuth sends HTTP basic credentials on every request
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Mode() string { return AuthModeBasic }

func (a BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.Username, a.Password)
}

func (a BasicAuth) Transport(base http.RoundTripper) http.RoundTripper {
	return base
}

// WindowsDomainAuth negotiates NTLM with domain credentials
type WindowsDomainAuth struct {
	Domain   string
	Username string
	Password string
}

func (a WindowsDomainAuth) Mode() string { return AuthModeWindowsDomain }

// Apply hands the credentials to the negotiator, which reads them from the basic auth header
func (a WindowsDomainAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.qualifiedUser(), a.Password)
}

func (a WindowsDomainAuth) Transport(base http.RoundTripper) http.RoundTripper {
	return ntlmssp.Negotiator{RoundTripper: base}
}

func (a WindowsDomainAuth) qualifiedUser() string {
	if a.Domain == "" {
		return a.Username
	}
	return a.Domain + `\` + a.Username
}

// NewAuthenticator resolves the configured authentication mode
func NewAuthenticator(cfg AuthConfig) (Authenticator, error) {
	if cfg.Username == "" {
		return nil, fmt.Errorf("back office username is required")
	}

	switch strings.ToLower(cfg.Mode) {
	case AuthModeWindowsDomain, "ntlm":
		return WindowsDomainAuth{Domain: cfg.Domain, Username: cfg.Username, Password: cfg.Password}, nil
	case AuthModeBasic, "":
		return BasicAuth{Username: cfg.Username, Password: cfg.Password}, nil
	default:
		return nil, fmt.Errorf("unsupported back office auth mode: %s", cfg.Mode)
	}
}
