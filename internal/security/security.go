// Package security checks scrape targets before they are fetched.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// maxRedirects matches the net/http default.
const maxRedirects = 10

// Config lists what a scrape target may look like.
type Config struct {
	AllowedSchemes []string `yaml:"allowed_schemes" json:"allowed_schemes"`
	BlockedDomains []string `yaml:"blocked_domains" json:"blocked_domains"`
	MaxURLLength   int      `yaml:"max_url_length" json:"max_url_length"`
	// BlockPrivateNetworks refuses hosts that resolve to loopback, private
	// or link-local addresses.
	BlockPrivateNetworks bool `yaml:"block_private_networks" json:"block_private_networks"`
}

// DefaultConfig returns the policy used when none is configured.
func DefaultConfig() Config {
	return Config{
		AllowedSchemes: []string{"https", "http"},
		BlockedDomains: []string{},
		MaxURLLength:   2048,
	}
}

// Issue describes why a target was refused.
type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (i *Issue) Error() string {
	return i.Message
}

// Retryable is false: a refused target stays refused.
func (i *Issue) Retryable() bool { return false }

// Validator applies a Config to target URLs.
type Validator struct {
	allowedSchemes []string
	blockedDomains []string
	maxURLLength   int
	blockPrivate   bool
	lookup         func(ctx context.Context, host string) ([]net.IPAddr, error)
}

// NewValidator creates a validator. Empty fields fall back to DefaultConfig.
func NewValidator(cfg Config) *Validator {
	def := DefaultConfig()
	if len(cfg.AllowedSchemes) == 0 {
		cfg.AllowedSchemes = def.AllowedSchemes
	}
	if cfg.MaxURLLength <= 0 {
		cfg.MaxURLLength = def.MaxURLLength
	}

	blocked := make([]string, 0, len(cfg.BlockedDomains))
	for _, d := range cfg.BlockedDomains {
		if d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), "."); d != "" {
			blocked = append(blocked, d)
		}
	}

	return &Validator{
		allowedSchemes: cfg.AllowedSchemes,
		blockedDomains: blocked,
		maxURLLength:   cfg.MaxURLLength,
		blockPrivate:   cfg.BlockPrivateNetworks,
		lookup:         net.DefaultResolver.LookupIPAddr,
	}
}

// ValidateURL returns an *Issue when inputURL must not be fetched.
func (v *Validator) ValidateURL(ctx context.Context, inputURL string) error {
	if len(inputURL) > v.maxURLLength {
		return &Issue{
			Type:    "url_length_exceeded",
			Message: fmt.Sprintf("URL length %d exceeds maximum allowed %d", len(inputURL), v.maxURLLength),
		}
	}

	parsedURL, err := url.Parse(inputURL)
	if err != nil {
		return &Issue{Type: "invalid_url_format", Message: fmt.Sprintf("invalid URL format: %v", err)}
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return &Issue{
			Type:    "disallowed_scheme",
			Message: fmt.Sprintf("scheme %q not in allowed list: %s", parsedURL.Scheme, strings.Join(v.allowedSchemes, ", ")),
		}
	}

	host := strings.ToLower(parsedURL.Hostname())
	if v.isDomainBlocked(host) {
		return &Issue{Type: "blocked_domain", Message: fmt.Sprintf("domain %q is blocked", host)}
	}

	if v.blockPrivate {
		return v.checkAddresses(ctx, host)
	}
	return nil
}

// BlocksPrivateNetworks reports whether dialing private addresses is refused.
func (v *Validator) BlocksPrivateNetworks() bool {
	return v.blockPrivate
}

// CheckRedirect is an http.Client CheckRedirect hook applying the policy to
// every redirect hop.
func (v *Validator) CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}
	return v.ValidateURL(req.Context(), req.URL.String())
}

// DialControl is a net.Dialer Control hook that refuses connections to
// non-public addresses when private networks are blocked. It sees the
// address actually dialed, after DNS resolution.
func (v *Validator) DialControl(network, address string, _ syscall.RawConn) error {
	if !v.blockPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return &Issue{Type: "private_address", Message: fmt.Sprintf("cannot check dialed address %q", address)}
	}
	if isPrivate(ip) {
		return &Issue{Type: "private_address", Message: fmt.Sprintf("refusing to connect to non-public address %s", ip)}
	}
	return nil
}

func (v *Validator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func (v *Validator) isDomainBlocked(domain string) bool {
	domain = strings.TrimSuffix(domain, ".")
	for _, blocked := range v.blockedDomains {
		if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
			return true
		}
	}
	return false
}

func (v *Validator) checkAddresses(ctx context.Context, host string) error {
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		addrs, err := v.lookup(ctx, host)
		if err != nil {
			return &Issue{Type: "unresolvable_host", Message: fmt.Sprintf("cannot resolve %q: %v", host, err)}
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	}

	for _, ip := range ips {
		if isPrivate(ip) {
			return &Issue{Type: "private_address", Message: fmt.Sprintf("host %q resolves to non-public address %s", host, ip)}
		}
	}
	return nil
}

func isPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast()
}
