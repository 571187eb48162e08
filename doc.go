/*
Package logos is a small framework for HTTP request handlers.

A controller is declared once with Define and instantiated per request.
Each instance runs a fixed pipeline:

	interceptors → handler → serializer → status, shape, send

Interceptors guard the handler.  AuthInterceptor fails with 401
"Unauthorized"; ValidationInterceptor fails with 400 and the validation
error's message, or "Invalid arguments".  Any failed interceptor skips
the handler and the serializer.

Handlers return a result or an error.  Errors are looked up by name,
first in the instance's ErrorDictionary and then in the definition's.
A known error sets the response status and message.  A Chained known
error may name a further error, which is looked up in turn.  Errors
that are not known become 500 responses.

The payload sent is always

	{"status": ..., "meta": {...}, "data": ...}

on success, or

	{"status": ..., "meta": {...}, "error": ..., "stack": ...}

on failure.  Stacks are omitted in production.

Types, schemas, DTOs and the serializer live in the ltype, schema, dto
and serializer packages.  The router package binds controllers to URL
paths.
*/
package logos
