//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package envelope

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWriter_EmitsSSEFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	wr, err := NewWriter(rec, "req-1", "hybridrag-core", time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	if err := wr.Role(); err != nil {
		t.Fatalf("Role failed: %v", err)
	}
	if err := wr.Progress("thinking..."); err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if err := wr.Content("hello"); err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	if err := wr.Done([]string{"source-1"}); err != nil {
		t.Fatalf("Done failed: %v", err)
	}

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSpace(body), "\n\n")
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames (role, progress, content, done, [DONE]), got %d: %q", len(frames), body)
	}
	if frames[len(frames)-1] != "data: [DONE]" {
		t.Errorf("expected terminal [DONE] sentinel, got %q", frames[len(frames)-1])
	}

	var roleChunk chunk
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &roleChunk); err != nil {
		t.Fatalf("failed to decode role frame: %v", err)
	}
	if roleChunk.Choices[0].Delta.Role != "assistant" {
		t.Errorf("expected role assistant, got %q", roleChunk.Choices[0].Delta.Role)
	}

	var progressChunk chunk
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &progressChunk); err != nil {
		t.Fatalf("failed to decode progress frame: %v", err)
	}
	if progressChunk.Choices[0].Delta.ReasoningContent != "thinking..." {
		t.Errorf("expected reasoning_content, got %+v", progressChunk.Choices[0].Delta)
	}

	var doneChunk chunk
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[3], "data: ")), &doneChunk); err != nil {
		t.Fatalf("failed to decode done frame: %v", err)
	}
	if doneChunk.Choices[0].FinishReason == nil || *doneChunk.Choices[0].FinishReason != "stop" {
		t.Errorf("expected finish_reason stop, got %+v", doneChunk.Choices[0].FinishReason)
	}
}
