// package transport contains implementations to requirements on *message syntaxes*
// defined by http related RFCs:
//
//	HTTP Semantics (RFC9110)
//	HTTP/1.1 (RFC9112)
//	HTTP/2 (RFC9113)
//
// a transport carries exactly one hop. following redirects, timeouts and
// everything else that spans hops belongs to the request state machine.
//
// HTTP/1.1 is written and parsed here, HTTP/2 framing is left to
// [golang.org/x/net/http2] and only used on connections that negotiated h2.
package transport
