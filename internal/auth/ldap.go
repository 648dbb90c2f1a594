package auth

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

// LDAPConfig holds LDAP/Active Directory configuration for authentication.
type LDAPConfig struct {
	// Enabled indicates if LDAP authentication is enabled.
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS) on port 636.
	UseSSL bool
	// UseTLS enables StartTLS to upgrade an LDAP connection to TLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// UserDNTemplate is the template for the user's bind DN
	// (e.g., "uid={username},ou=people,dc=example,dc=org"). The {username}
	// placeholder is replaced with the actual username.
	UserDNTemplate string
	// GroupMemberAttr is the LDAP attribute for group membership (e.g., "member", "uniqueMember").
	GroupMemberAttr string
	// Timeout is the connection timeout in seconds.
	Timeout int
}

// LDAPProvider handles LDAP authentication and group-membership checks.
type LDAPProvider struct {
	config *LDAPConfig
}

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(config *LDAPConfig) (*LDAPProvider, error) {
	if !config.Enabled {
		return nil, ErrLDAPDisabled
	}

	// Set defaults
	if config.GroupMemberAttr == "" {
		config.GroupMemberAttr = "member"
	}

	if config.Timeout == 0 {
		config.Timeout = 10
	}

	return &LDAPProvider{config: config}, nil
}

// Connect establishes a connection to the LDAP server.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	var ldapURL string
	if p.config.UseSSL {
		ldapURL = "ldaps://" + hostPort
	} else {
		ldapURL = "ldap://" + hostPort
	}

	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         p.config.Host,
		}
	}

	conn, err := ldap.DialURL(ldapURL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	// Upgrade to TLS if requested (for non-SSL connections)
	if !p.config.UseSSL && p.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	if p.config.Timeout > 0 {
		conn.SetTimeout(time.Duration(p.config.Timeout) * time.Second)
	}

	return conn, nil
}

// UserDN resolves the bind DN for the given username.
func (p *LDAPProvider) UserDN(username string) string {
	return strings.ReplaceAll(p.config.UserDNTemplate, "{username}", ldap.EscapeDN(username))
}

// Authenticate binds as the user and returns the subset of candidateGroups
// the user is a member of. A bind failure fails closed; membership lookup
// errors outside the defined skip set propagate.
func (p *LDAPProvider) Authenticate(username, password string, candidateGroups []string) ([]string, error) {
	conn, err := p.Connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	userDN := p.UserDN(username)

	if errBind := conn.Bind(userDN, password); errBind != nil {
		if ldap.IsErrorWithCode(errBind, ldap.LDAPResultInvalidCredentials) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, errBind)
		}

		return nil, fmt.Errorf("bind failed: %w", errBind)
	}

	var matched []string

	for _, groupDN := range candidateGroups {
		member, errMember := p.isMember(conn, userDN, groupDN)
		if errMember != nil {
			return nil, fmt.Errorf("failed to check membership in %q: %w", groupDN, errMember)
		}

		if member {
			matched = append(matched, groupDN)
		}
	}

	return matched, nil
}

// isMember checks whether userDN belongs to groupDN: first a subtree search
// for a memberOf value on the user entry, then a direct member-attribute
// compare on the group entry. Either success counts as membership.
//
// Unknown-attribute and unknown-object results while testing a single group
// are skipped (the group is simply not counted); anything else is an error.
func (p *LDAPProvider) isMember(conn *ldap.Conn, userDN, groupDN string) (bool, error) {
	searchRequest := ldap.NewSearchRequest(
		userDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		p.config.Timeout,
		false,
		fmt.Sprintf("(memberOf=%s)", ldap.EscapeFilter(groupDN)),
		[]string{"dn"},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)

	switch {
	case err == nil && len(searchResult.Entries) > 0:
		return true, nil
	case err != nil && !p.skippableLookupError(err):
		return false, fmt.Errorf("group search failed: %w", err)
	case err != nil:
		log.Debug().Err(err).Str("group", groupDN).Msg("memberOf search not supported, falling back to compare")
	}

	matched, err := conn.Compare(groupDN, p.config.GroupMemberAttr, userDN)
	if err != nil {
		if p.skippableLookupError(err) {
			log.Debug().Err(err).Str("group", groupDN).Msg("skipping group after compare error")

			return false, nil
		}

		return false, fmt.Errorf("group compare failed: %w", err)
	}

	return matched, nil
}

// skippableLookupError defines the error subset swallowed during a
// single-group membership test.
func (*LDAPProvider) skippableLookupError(err error) bool {
	return ldap.IsErrorAnyOf(err,
		ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType,
	)
}

// TestConnection tests the LDAP server connection.
// Returns nil if the connection succeeds, otherwise returns an error.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}

	if errClose := conn.Close(); errClose != nil {
		log.Warn().Err(errClose).Msg("failed to close LDAP connection")
	}

	return nil
}
