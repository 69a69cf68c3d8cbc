// Package scenetools exposes the A-Frame command vocabulary as MCP tools
// backed by the bridge.
package scenetools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Sender issues one command through the bridge and returns the scene's result.
type Sender interface {
	Send(ctx context.Context, commandType string, params any) (json.RawMessage, error)
}

const assetStrategy = `# A-Frame Asset Creation Strategy

1. Prefer reusing existing entities: inspect the scene graph with ` + "`get_scene_graph`" + ` before spawning new nodes.
2. Use ` + "`load_remote_asset`" + ` for glTF, images, and audio hosted on CDNs. The bridge automatically places assets into ` + "`<a-assets>`" + `.
3. When remote assets are unavailable, build simple primitives with ` + "`create_entity`" + ` using basic components like ` + "`geometry`" + `, ` + "`material`" + `, ` + "`light`" + `, or ` + "`animation`" + `.
4. Apply incremental updates through ` + "`update_component`" + ` to avoid overwriting user-authored attributes.
5. Capture screenshots frequently with ` + "`capture_view`" + ` to validate layout and scale.
6. Prefer declarative component values over free-form ` + "`execute_script`" + `. Reserve scripts for complex logic and wrap them in idempotent functions.`

type handler struct {
	sender Sender
}

// NewServer constructs the MCP server with every scene tool registered.
func NewServer(sender Sender, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"AFrameMCP",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	h := &handler{sender: sender}

	s.AddResource(mcp.NewResource(
		"aframe://asset-strategy",
		"asset_strategy",
		mcp.WithResourceDescription("Guidance for agents manipulating A-Frame scenes."),
		mcp.WithMIMEType("text/markdown"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     assetStrategy,
		}}, nil
	})

	s.AddTool(mcp.NewTool("get_scene_graph",
		mcp.WithDescription("Retrieve the full A-Frame scene graph as structured JSON."),
	), h.getSceneGraph)

	s.AddTool(mcp.NewTool("find_entity",
		mcp.WithDescription("Query for an entity using a CSS selector and return its attributes."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the target entity")),
	), h.findEntity)

	s.AddTool(mcp.NewTool("create_entity",
		mcp.WithDescription("Create a new entity and attach it to the scene."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Element tag, e.g. a-box or a-entity")),
		mcp.WithString("parent_selector", mcp.Description("Selector of the parent element (default a-scene)")),
		mcp.WithObject("attributes", mcp.Description("Attributes to set on the new entity")),
	), h.createEntity)

	s.AddTool(mcp.NewTool("update_component",
		mcp.WithDescription("Update an entity component by merging provided data."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the target entity")),
		mcp.WithString("component", mcp.Required(), mcp.Description("Component name")),
		mcp.WithObject("data", mcp.Required(), mcp.Description("Component data to merge")),
	), h.updateComponent)

	s.AddTool(mcp.NewTool("remove_entity",
		mcp.WithDescription("Remove an entity that matches the selector."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the target entity")),
	), h.removeEntity)

	s.AddTool(mcp.NewTool("load_remote_asset",
		mcp.WithDescription("Register a remote asset inside <a-assets> and return the element id."),
		mcp.WithString("asset_id", mcp.Required(), mcp.Description("Element id for the asset")),
		mcp.WithString("asset_type", mcp.Required(), mcp.Description("Asset kind, e.g. gltf, image, audio")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Asset URL")),
		mcp.WithObject("options", mcp.Description("Additional asset options")),
	), h.loadRemoteAsset)

	s.AddTool(mcp.NewTool("execute_script",
		mcp.WithDescription("Execute a sandboxed JavaScript snippet inside the scene context."),
		mcp.WithString("code", mcp.Required(), mcp.Description("JavaScript source to run")),
	), h.executeScript)

	s.AddTool(mcp.NewTool("capture_view",
		mcp.WithDescription("Capture a screenshot of the active canvas."),
		mcp.WithNumber("width", mcp.Description("Capture width in pixels (default 1280)")),
		mcp.WithNumber("height", mcp.Description("Capture height in pixels (default 720)")),
	), h.captureView)

	s.AddTool(mcp.NewTool("list_assets",
		mcp.WithDescription("List assets currently registered in <a-assets>."),
	), h.listAssets)

	s.AddTool(mcp.NewTool("focus_camera",
		mcp.WithDescription("Move the default camera to focus on the target entity."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the target entity")),
	), h.focusCamera)

	s.AddTool(mcp.NewTool("ping_bridge",
		mcp.WithDescription("Perform a liveness probe on the A-Frame bridge."),
	), h.pingBridge)

	return s
}

func (h *handler) send(ctx context.Context, commandType string, params map[string]any) (*mcp.CallToolResult, error) {
	result, err := h.sender.Send(ctx, commandType, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result), nil
}

func jsonResult(raw json.RawMessage) *mcp.CallToolResult {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return mcp.NewToolResultText(string(raw))
	}
	return mcp.NewToolResultText(buf.String())
}

func (h *handler) getSceneGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.send(ctx, "get_scene_graph", map[string]any{})
}

func (h *handler) findEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.send(ctx, "find_entity", map[string]any{"selector": selector})
}

func (h *handler) createEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attributes, _ := req.GetArguments()["attributes"].(map[string]any)
	if attributes == nil {
		attributes = map[string]any{}
	}
	return h.send(ctx, "create_entity", map[string]any{
		"tag":            tag,
		"parentSelector": req.GetString("parent_selector", "a-scene"),
		"attributes":     attributes,
	})
}

func (h *handler) updateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	component, err := req.RequireString("component")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := req.GetArguments()["data"].(map[string]any)
	if data == nil {
		return mcp.NewToolResultError("data must be an object"), nil
	}
	return h.send(ctx, "update_component", map[string]any{
		"selector":  selector,
		"component": component,
		"data":      data,
	})
}

func (h *handler) removeEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.send(ctx, "remove_entity", map[string]any{"selector": selector})
}

func (h *handler) loadRemoteAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	assetID, err := req.RequireString("asset_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	assetType, err := req.RequireString("asset_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	options, _ := req.GetArguments()["options"].(map[string]any)
	if options == nil {
		options = map[string]any{}
	}
	return h.send(ctx, "load_remote_asset", map[string]any{
		"assetId":   assetID,
		"assetType": assetType,
		"url":       url,
		"options":   options,
	})
}

func (h *handler) executeScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.send(ctx, "execute_script", map[string]any{"code": code})
}

func (h *handler) captureView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.sender.Send(ctx, "capture_view", map[string]any{
		"width":  req.GetInt("width", 1280),
		"height": req.GetInt("height", 720),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var capture struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(result, &capture); err != nil || capture.Image == "" {
		return mcp.NewToolResultError("bridge returned no image data"), nil
	}
	return mcp.NewToolResultImage("scene capture", capture.Image, "image/png"), nil
}

func (h *handler) listAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.send(ctx, "list_assets", map[string]any{})
}

func (h *handler) focusCamera(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.send(ctx, "focus_camera", map[string]any{"selector": selector})
}

func (h *handler) pingBridge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.send(ctx, "ping", map[string]any{})
}
