// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers implements the gateway's HTTP request handlers.

# Core types

  - GatewayChatHandler — /v1/chat/completions, non-streaming and SSE
  - HealthHandler      — /healthz, /readyz with pluggable HealthCheck
  - Response, ErrorInfo — the envelope success/error responses share
  - ResponseWriter      — wraps http.ResponseWriter to capture status code

# Main capabilities

  - Uniform response shape: WriteSuccess / WriteError / WriteJSON
  - Request validation: ValidateContentType, and GatewayChatHandler's own
    lenient body decode (no DisallowUnknownFields, so real OpenAI clients'
    extra fields are ignored rather than rejected)
  - ErrorCode -> HTTP status mapping (4xx/5xx)
  - Pluggable readiness checks via RegisterCheck
*/
package handlers
