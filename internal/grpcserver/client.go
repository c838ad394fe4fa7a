package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls the animehub services over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, service, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+service+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAnime(ctx context.Context, req *ListAnimeRequest, opts ...grpc.CallOption) (*ListAnimeResponse, error) {
	return invoke[ListAnimeResponse](ctx, c, CatalogServiceName, "ListAnime", req, opts)
}

func (c *Client) GetAnime(ctx context.Context, req *GetAnimeRequest, opts ...grpc.CallOption) (*GetAnimeResponse, error) {
	return invoke[GetAnimeResponse](ctx, c, CatalogServiceName, "GetAnime", req, opts)
}

func (c *Client) ListSeries(ctx context.Context, req *ListSeriesRequest, opts ...grpc.CallOption) (*ListSeriesResponse, error) {
	return invoke[ListSeriesResponse](ctx, c, CatalogServiceName, "ListSeries", req, opts)
}

func (c *Client) ExtractSeries(ctx context.Context, req *ExtractSeriesRequest, opts ...grpc.CallOption) (*ExtractSeriesResponse, error) {
	return invoke[ExtractSeriesResponse](ctx, c, CatalogServiceName, "ExtractSeries", req, opts)
}

func (c *Client) ListProgress(ctx context.Context, req *ListProgressRequest, opts ...grpc.CallOption) (*ListProgressResponse, error) {
	return invoke[ListProgressResponse](ctx, c, ProgressServiceName, "ListProgress", req, opts)
}

func (c *Client) GetProgress(ctx context.Context, req *GetProgressRequest, opts ...grpc.CallOption) (*ProgressResponse, error) {
	return invoke[ProgressResponse](ctx, c, ProgressServiceName, "GetProgress", req, opts)
}

func (c *Client) UpsertProgress(ctx context.Context, req *UpsertProgressRequest, opts ...grpc.CallOption) (*ProgressResponse, error) {
	return invoke[ProgressResponse](ctx, c, ProgressServiceName, "UpsertProgress", req, opts)
}

func (c *Client) DeleteProgress(ctx context.Context, req *DeleteProgressRequest, opts ...grpc.CallOption) (*DeleteProgressResponse, error) {
	return invoke[DeleteProgressResponse](ctx, c, ProgressServiceName, "DeleteProgress", req, opts)
}
