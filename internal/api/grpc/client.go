package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"ai-script-editor-service/internal/service/document"
)

// Client calls EditorService over a JSON-codec connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetDocument(ctx context.Context, req *GetDocumentRequest) (*document.Snapshot, error) {
	out := new(document.Snapshot)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetDocument", req, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApplyPatch(ctx context.Context, req *ApplyPatchRequest) (*ApplyPatchResponse, error) {
	out := new(ApplyPatchResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ApplyPatch", req, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RenderMarkup(ctx context.Context, req *RenderMarkupRequest) (*RenderMarkupResponse, error) {
	out := new(RenderMarkupResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/RenderMarkup", req, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}
