// go-auth provides packages for authenticating web application users against
// a 10Duke identity provider with the OAuth2 authorization code grant,
// including license claim resolution for the authenticated user.
//
// See README.md
package auth
