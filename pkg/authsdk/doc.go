/*
Package authsdk provides a client SDK for the Quill authentication service,
along with the wire types and error bodies the service itself writes.

# SDKClient vs Session

  - SDKClient: public operations (login, refresh, registration, health)
  - Session: operations that need a bearer token, with automatic refresh

	client := authsdk.NewSDKClient("http://localhost:3001")

	session, err := client.AuthenticateWithPassword(ctx, "alice", "s3cret", "")
	if errors.Is(err, authsdk.ErrMFARequired) {
		// admin with MFA enabled, retry with the current TOTP code
		session, err = client.AuthenticateWithPassword(ctx, "alice", "s3cret", code)
	}

	profile, err := session.Profile(ctx)

# Errors

Every non-2xx response is returned as an *APIError. Compare against the
predefined values with errors.Is:

	if errors.Is(err, authsdk.ErrInsufficientRole) { ... }
*/
package authsdk
