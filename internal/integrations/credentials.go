// ABOUTME: Credential source abstraction for provider-level OAuth client pairs
// ABOUTME: Lets app-settings overrides apply without rebuilding integrations

package integrations

// CredentialSource resolves provider-level OAuth client credentials at call
// time, so runtime overrides in app settings take effect without a restart.
type CredentialSource interface {
	OAuthClient(provider string) (clientID, clientSecret string)
}

// StaticCredentials is a CredentialSource backed by a fixed map. Used in tests
// and for deployments without runtime overrides.
type StaticCredentials map[string][2]string

// OAuthClient returns the stored pair, or empty strings if absent.
func (s StaticCredentials) OAuthClient(provider string) (string, string) {
	pair := s[provider]
	return pair[0], pair[1]
}
