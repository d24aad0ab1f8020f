package models

import (
	"fmt"
	"strconv"
	"strings"
)

// System settings persist as loosely-typed key-value rows for backward
// migration, but every concern surfaces as its own struct with its own
// validation. The Values/FromValues pairs are the codec between the two
// representations.

// LdapSettings configures the directory used for LDAP logins.
type LdapSettings struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"` // ldap:// or ldaps://
	BindDN        string `json:"bind_dn"`
	BindPassword  string `json:"bind_password"`
	BaseDN        string `json:"base_dn"`
	UserAttribute string `json:"user_attribute"` // defaults to "uid"
}

// Validate checks the settings before they are persisted. A disabled
// configuration is always valid so admins can save partial drafts.
func (s *LdapSettings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if !strings.HasPrefix(s.URL, "ldap://") && !strings.HasPrefix(s.URL, "ldaps://") {
		return fmt.Errorf("ldap url must start with ldap:// or ldaps://")
	}
	if s.BaseDN == "" {
		return fmt.Errorf("ldap base DN is required")
	}
	return nil
}

// Attribute returns the search attribute, defaulting to uid.
func (s *LdapSettings) Attribute() string {
	if s.UserAttribute == "" {
		return "uid"
	}
	return s.UserAttribute
}

// Values encodes the settings as key-value rows.
func (s LdapSettings) Values() map[string]string {
	return map[string]string{
		"ldap.enabled":        strconv.FormatBool(s.Enabled),
		"ldap.url":            s.URL,
		"ldap.bind_dn":        s.BindDN,
		"ldap.bind_password":  s.BindPassword,
		"ldap.base_dn":        s.BaseDN,
		"ldap.user_attribute": s.UserAttribute,
	}
}

// LdapSettingsFromValues decodes key-value rows into settings. Missing keys
// keep zero values so settings written by older versions still load.
func LdapSettingsFromValues(values map[string]string) LdapSettings {
	return LdapSettings{
		Enabled:       values["ldap.enabled"] == "true",
		URL:           values["ldap.url"],
		BindDN:        values["ldap.bind_dn"],
		BindPassword:  values["ldap.bind_password"],
		BaseDN:        values["ldap.base_dn"],
		UserAttribute: values["ldap.user_attribute"],
	}
}

// MailSettings configures the SMTP relay used for password reset mail.
type MailSettings struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FromAddress string `json:"from_address"`
	UseTLS      bool   `json:"use_tls"`
}

// Validate checks the settings before they are persisted.
func (s *MailSettings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Host == "" {
		return fmt.Errorf("mail host is required")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("mail port must be between 1 and 65535")
	}
	if !strings.Contains(s.FromAddress, "@") {
		return fmt.Errorf("mail from address is not a valid email address")
	}
	return nil
}

// Values encodes the settings as key-value rows.
func (s MailSettings) Values() map[string]string {
	return map[string]string{
		"mail.enabled":      strconv.FormatBool(s.Enabled),
		"mail.host":         s.Host,
		"mail.port":         strconv.Itoa(s.Port),
		"mail.username":     s.Username,
		"mail.password":     s.Password,
		"mail.from_address": s.FromAddress,
		"mail.use_tls":      strconv.FormatBool(s.UseTLS),
	}
}

// MailSettingsFromValues decodes key-value rows into settings.
func MailSettingsFromValues(values map[string]string) MailSettings {
	port, _ := strconv.Atoi(values["mail.port"])
	return MailSettings{
		Enabled:     values["mail.enabled"] == "true",
		Host:        values["mail.host"],
		Port:        port,
		Username:    values["mail.username"],
		Password:    values["mail.password"],
		FromAddress: values["mail.from_address"],
		UseTLS:      values["mail.use_tls"] == "true",
	}
}

// AccessSettings configures sign-in and publishing policy.
type AccessSettings struct {
	AllowPublicDashboards bool   `json:"allow_public_dashboards"`
	AllowLdapSignup       bool   `json:"allow_ldap_signup"`
	DefaultRole           string `json:"default_role"`
}

// Validate checks the settings before they are persisted.
func (s *AccessSettings) Validate() error {
	if s.DefaultRole != "" && !ValidRole(s.DefaultRole) {
		return fmt.Errorf("default role must be admin or standard")
	}
	return nil
}

// Role returns the role assigned to auto-provisioned users.
func (s *AccessSettings) Role() string {
	if s.DefaultRole == "" {
		return RoleStandard
	}
	return s.DefaultRole
}

// Values encodes the settings as key-value rows.
func (s AccessSettings) Values() map[string]string {
	return map[string]string{
		"access.allow_public_dashboards": strconv.FormatBool(s.AllowPublicDashboards),
		"access.allow_ldap_signup":       strconv.FormatBool(s.AllowLdapSignup),
		"access.default_role":            s.DefaultRole,
	}
}

// AccessSettingsFromValues decodes key-value rows into settings.
func AccessSettingsFromValues(values map[string]string) AccessSettings {
	return AccessSettings{
		AllowPublicDashboards: values["access.allow_public_dashboards"] == "true",
		AllowLdapSignup:       values["access.allow_ldap_signup"] == "true",
		DefaultRole:           values["access.default_role"],
	}
}
