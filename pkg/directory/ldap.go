// Package directory authenticates users against an LDAP server.
//
// The flow is the classic three steps: bind with the service account, search
// the subtree for the username, then bind as the located entry to verify the
// password. Every operation runs under a 5-second deadline so a slow
// directory cannot stall a login request, and connection errors come back as
// ordinary errors rather than taking the process down.
package directory

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/models"
)

// Timeout bounds every directory operation.
const Timeout = 5 * time.Second

// User is a directory entry resolved during authentication.
type User struct {
	Username    string
	Email       string
	DisplayName string
	DN          string
}

// Client performs bind/search/authenticate flows against an LDAP server.
type Client struct {
	logger *zap.Logger
}

// NewClient creates a directory client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{logger: logger}
}

// Authenticate verifies a username and password against the directory and
// returns the resolved entry on success.
func (c *Client) Authenticate(ctx context.Context, cfg models.LdapSettings, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	conn, err := c.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entry, err := c.findEntry(conn, cfg, username)
	if err != nil {
		return nil, err
	}

	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, fmt.Errorf("user bind failed: %w", err)
	}

	return userFromEntry(cfg, entry), nil
}

// Lookup resolves a username without verifying a password. Used to check
// whether an identifier exists in the directory before provisioning.
func (c *Client) Lookup(ctx context.Context, cfg models.LdapSettings, username string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	conn, err := c.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entry, err := c.findEntry(conn, cfg, username)
	if err != nil {
		return nil, err
	}
	return userFromEntry(cfg, entry), nil
}

// connect dials the directory and binds the service account. The connection
// deadline derives from the caller's context, floored at the package
// timeout.
func (c *Client) connect(ctx context.Context, cfg models.LdapSettings) (*ldap.Conn, error) {
	timeout := Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("directory unreachable: %w", err)
	}
	conn.SetTimeout(timeout)

	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("service bind failed: %w", err)
		}
	}
	return conn, nil
}

// findEntry searches the subtree for exactly one entry matching the
// username. The filter value is escaped so a crafted identifier cannot
// widen the search.
func (c *Client) findEntry(conn *ldap.Conn, cfg models.LdapSettings, username string) (*ldap.Entry, error) {
	request := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, int(Timeout.Seconds()), false,
		fmt.Sprintf("(%s=%s)", cfg.Attribute(), ldap.EscapeFilter(username)),
		[]string{"dn", cfg.Attribute(), "mail", "cn"},
		nil,
	)

	result, err := conn.Search(request)
	if err != nil {
		return nil, fmt.Errorf("directory search failed: %w", err)
	}
	if len(result.Entries) != 1 {
		return nil, fmt.Errorf("user does not exist or is ambiguous: %d entries", len(result.Entries))
	}
	return result.Entries[0], nil
}

func userFromEntry(cfg models.LdapSettings, entry *ldap.Entry) *User {
	return &User{
		Username:    entry.GetAttributeValue(cfg.Attribute()),
		Email:       entry.GetAttributeValue("mail"),
		DisplayName: entry.GetAttributeValue("cn"),
		DN:          entry.DN,
	}
}
