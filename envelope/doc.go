/*

Package envelope is the HTTP side of a logos request: it reads request
bodies, encodes response payloads and carries the small pieces of
infrastructure that both need.

The body decoder picks a Decoder by Content-Type (JSON and YAML are
built in) and returns BadRequest errors when the body cannot be read.

Response buffers the status, headers and encoded payload in a
DeferredWriter so that nothing reaches the client until Send succeeds.
The encoder is chosen by the Accept header.

NotFound, Forbidden, Unauthorized, and BadRequest annotate an error
with an HTTP status.  GetReturnCode reads it back through wrapping.

SetErrorOnPanic and CatchPanic turn panics into error returns that
keep the recovered value and the stack.

BasicLogger is the logging interface used throughout logos.

*/
package envelope
