// Package secret resolves credentials referenced from configuration values.
//
// A value is first expanded strictly against the environment (see
// ExpandEnvStrict), then any "secretref:<provider>:<ref>" references are
// replaced by the named provider's answer:
//
//	TENANTVIEW_API_TOKEN=secretref:env:DASHBOARD_TOKEN
//	TENANTVIEW_SIGNING_KEY=secretref:file:/run/secrets/jwt-key
//	TENANTVIEW_API_TOKEN="Bearer secretref:env:DASHBOARD_TOKEN"   # inline
//
// Two providers are built in: EnvProvider ("env") and FileProvider ("file").
package secret
