// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types defines the structured error type shared across the
gateway's packages: Error, ErrorCode, and the constructors/predicates
around them (NewError, IsRetryable, GetErrorCode).

Every package that returns a client-facing failure — Router's admission
errors, Dispatcher's adapter-construction errors, the provider adapters'
upstream-call errors — returns *Error so the HTTP layer can map a single
consistent shape (code, message, retryable, HTTP status) onto a response,
without each caller knowing about net/http.
*/
package types
