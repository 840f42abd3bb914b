/*
tenduke is a package for integrating with a 10Duke identity provider using the
oauth2 authorization code flow, including the provider's per-resource license
grants.

Primary types provided by the package

* Config: provides the configuration for the flow (client id/secret, endpoint
paths, requested license identifiers, callback path, backchannel timeout, and
the key protecting the state parameter)

* StateCodec: produces and verifies the opaque, tamper-evident state parameter
which correlates the outbound authorization redirect with the inbound
callback

* Client: performs the backchannel calls against the provider: exchanging an
authorization code for an access token, fetching the user profile, and
fetching license grants

* Identity: the ordered claim set built from the profile and license grants,
handed to the host application's session layer

The tenduke/callback package provides the http middleware which owns the
protocol itself: issuing challenges, handling the provider callback, and
completing the request.
*/
package tenduke
