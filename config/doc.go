// Package config loads tenantview settings from TENANTVIEW_* environment
// variables.
//
// Credential fields may hold secret references (secretref:env:NAME,
// secretref:file:/path), which Load resolves before validation.
package config
