package executor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/BaSui01/agentflow/gateway/openaiwire"
	"github.com/BaSui01/agentflow/gateway/provider"
	"github.com/BaSui01/agentflow/types"
	"go.uber.org/zap"
)

// StreamTo runs the streaming path: set SSE headers, open the adapter's
// channel, pump an opening role chunk, a content chunk per delta, a final
// chunk carrying finish_reason, and the terminal [DONE] line. Usage is
// accounted once the adapter's Final chunk arrives, after every byte has
// already been flushed to the client — mirroring the teacher's
// HandleStream, which logs/accounts only after the SSE loop completes.
//
// Any mid-stream adapter error is written as a `data: {"error":...}` frame
// followed by the usual `data: [DONE]` terminator: once headers are
// flushed there is no way to change the HTTP status, so the failure
// travels in-band instead, and the stream still ends the way every other
// stream does.
func (e *Executor) StreamTo(ctx context.Context, w http.ResponseWriter, adapter provider.Adapter, req Request) error {
	header := w.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Transfer-Encoding", "chunked")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		return types.NewError(types.ErrInternalError, "response writer does not support flushing").WithHTTPStatus(500)
	}

	stream, err := adapter.Stream(ctx, provider.ChatRequest{Model: req.Model.Name, Messages: req.Messages, Stream: true})
	if err != nil {
		return types.NewError(types.ErrUpstreamCallFailed, "upstream call failed").
			WithProvider(req.Provider.ID).WithCause(err)
	}

	id := e.newID()
	clientModel := req.Model.ClientFacingName()
	created := e.now().Unix()
	bw := bufio.NewWriter(w)

	writeChunk := func(c openaiwire.ChatCompletionChunk) error {
		payload, marshalErr := json.Marshal(c)
		if marshalErr != nil {
			return marshalErr
		}
		if _, werr := fmt.Fprintf(bw, "data: %s\n\n", payload); werr != nil {
			return werr
		}
		if ferr := bw.Flush(); ferr != nil {
			return ferr
		}
		flusher.Flush()
		return nil
	}

	if err := writeChunk(openaiwire.RoleChunk(id, clientModel, created)); err != nil {
		return err
	}

	for chunk := range stream {
		if chunk.Err != nil {
			e.logger.Warn("executor: upstream stream failed mid-flight",
				zap.String("provider_id", req.Provider.ID),
				zap.Error(chunk.Err),
			)
			writeStreamError(bw, flusher)
			return nil
		}
		if chunk.Final {
			if err := writeChunk(openaiwire.FinalChunk(id, clientModel, created, chunk.FinishReason)); err != nil {
				return err
			}
			fmt.Fprint(bw, "data: [DONE]\n\n")
			bw.Flush()
			flusher.Flush()
			e.account(req, chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
			return nil
		}
		if chunk.TextDelta == "" {
			continue
		}
		if err := writeChunk(openaiwire.ContentChunk(id, clientModel, created, chunk.TextDelta)); err != nil {
			return err
		}
	}
	return nil
}

// writeStreamError emits the fixed-literal in-band error frame followed by
// the normal [DONE] terminator. The originating error is logged by the
// caller; the wire payload deliberately does not echo it, matching the
// wire contract's literal `{"error":"Streaming failed"}` body.
func writeStreamError(bw *bufio.Writer, flusher http.Flusher) {
	fmt.Fprint(bw, `data: {"error":"Streaming failed"}`+"\n\n")
	fmt.Fprint(bw, "data: [DONE]\n\n")
	bw.Flush()
	flusher.Flush()
}
