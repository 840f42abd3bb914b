/*
callback provides the http middleware which owns the 10Duke authentication
protocol: redirecting unauthenticated requests out to the provider's
authorization endpoint (the challenge), handling the provider's callback
(verifying state, exchanging the code, resolving profile and license claims),
and completing the request by signing the resulting identity into the host
application's session layer.

The host application supplies the session layer via the SessionManager
interface and may observe or modify the flow through the Authenticated and
ReturnEndpoint hooks.
*/
package callback
