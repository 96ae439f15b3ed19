package checker

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strings"
	"time"
)

// CertInfo summarizes the leaf certificate presented by the audited
// host. A nil CertInfo is the neutral default when no TLS information
// could be obtained.
type CertInfo struct {
	Issuer              string `json:"issuer,omitempty"`
	ValidFrom           string `json:"validFrom,omitempty"`
	ValidTo             string `json:"validTo,omitempty"`
	DaysUntilExpiration int    `json:"daysUntilExpiration"`
	Valid               bool   `json:"valid"`
}

// CertInfoFromState builds a CertInfo from an already negotiated
// connection state, avoiding a second handshake when the root fetch
// went over TLS.
func CertInfoFromState(state *tls.ConnectionState, now time.Time) *CertInfo {
	if state == nil || len(state.PeerCertificates) == 0 {
		return nil
	}
	cert := state.PeerCertificates[0]
	issuer := ""
	if len(cert.Issuer.Organization) > 0 {
		issuer = cert.Issuer.Organization[0]
	} else if cert.Issuer.CommonName != "" {
		issuer = cert.Issuer.CommonName
	}
	days := int(time.Until(cert.NotAfter).Hours() / 24)
	return &CertInfo{
		Issuer:              issuer,
		ValidFrom:           cert.NotBefore.UTC().Format(time.RFC3339),
		ValidTo:             cert.NotAfter.UTC().Format(time.RFC3339),
		DaysUntilExpiration: days,
		Valid:               !now.Before(cert.NotBefore) && !now.After(cert.NotAfter),
	}
}

// FetchCertInfo dials the host directly and inspects its certificate.
// Used when the root fetch did not carry TLS state (e.g. the audit was
// redirected). Returns nil on any failure.
func FetchCertInfo(ctx context.Context, siteURL string, timeout time.Duration) *CertInfo {
	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName: u.Hostname(),
			MinVersion: tls.VersionTLS12,
		},
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return nil
	}
	defer conn.Close()
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil
	}
	state := tlsConn.ConnectionState()
	return CertInfoFromState(&state, time.Now())
}

// UsesHTTPS reports whether the audited URL is served over TLS.
func UsesHTTPS(siteURL string) bool {
	return strings.HasPrefix(siteURL, "https://")
}
