package scenetools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

type fakeSender struct {
	lastType   string
	lastParams any
	result     json.RawMessage
	err        error
}

func (f *fakeSender) Send(ctx context.Context, commandType string, params any) (json.RawMessage, error) {
	f.lastType = commandType
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestFindEntityRequiresSelector(t *testing.T) {
	h := &handler{sender: &fakeSender{}}
	res, err := h.findEntity(context.Background(), callReq(map[string]any{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for missing selector")
	}
}

func TestCreateEntityDefaults(t *testing.T) {
	f := &fakeSender{result: json.RawMessage(`{"id":"box-1"}`)}
	h := &handler{sender: f}
	res, err := h.createEntity(context.Background(), callReq(map[string]any{"tag": "a-box"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, res))
	}
	params, ok := f.lastParams.(map[string]any)
	if !ok {
		t.Fatalf("params type %T", f.lastParams)
	}
	if params["parentSelector"] != "a-scene" {
		t.Fatalf("parent selector default: %v", params["parentSelector"])
	}
	if f.lastType != "create_entity" {
		t.Fatalf("command type: %s", f.lastType)
	}
}

func TestSendErrorSurfacesAsToolError(t *testing.T) {
	f := &fakeSender{err: errors.New("No A-Frame scene is connected")}
	h := &handler{sender: f}
	res, err := h.getSceneGraph(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
}

func TestCaptureViewReturnsImage(t *testing.T) {
	f := &fakeSender{result: json.RawMessage(`{"image":"aGVsbG8="}`)}
	h := &handler{sender: f}
	res, err := h.captureView(context.Background(), callReq(map[string]any{"width": 640, "height": 480}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, res))
	}
	var ic mcp.ImageContent
	found := false
	for _, c := range res.Content {
		if img, ok := c.(mcp.ImageContent); ok {
			ic = img
			found = true
		}
	}
	if !found {
		t.Fatalf("no image content in result: %+v", res.Content)
	}
	if ic.Data != "aGVsbG8=" || ic.MIMEType != "image/png" {
		t.Fatalf("image content: %+v", ic)
	}
	params, _ := f.lastParams.(map[string]any)
	if params["width"] != 640 || params["height"] != 480 {
		t.Fatalf("capture params: %v", params)
	}
}

func TestCaptureViewMissingImage(t *testing.T) {
	f := &fakeSender{result: json.RawMessage(`{}`)}
	h := &handler{sender: f}
	res, err := h.captureView(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result when bridge returns no image")
	}
}

func TestJSONResultIndents(t *testing.T) {
	res := jsonResult(json.RawMessage(`{"a":1}`))
	if got := textOf(t, res); got != "{\n  \"a\": 1\n}" {
		t.Fatalf("indented output: %q", got)
	}
}
