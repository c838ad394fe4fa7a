package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const (
	CatalogServiceName  = "animehub.Catalog"
	ProgressServiceName = "animehub.Progress"
)

type CatalogServer interface {
	ListAnime(context.Context, *ListAnimeRequest) (*ListAnimeResponse, error)
	GetAnime(context.Context, *GetAnimeRequest) (*GetAnimeResponse, error)
	ListSeries(context.Context, *ListSeriesRequest) (*ListSeriesResponse, error)
	ExtractSeries(context.Context, *ExtractSeriesRequest) (*ExtractSeriesResponse, error)
}

type ProgressServer interface {
	ListProgress(context.Context, *ListProgressRequest) (*ListProgressResponse, error)
	GetProgress(context.Context, *GetProgressRequest) (*ProgressResponse, error)
	UpsertProgress(context.Context, *UpsertProgressRequest) (*ProgressResponse, error)
	DeleteProgress(context.Context, *DeleteProgressRequest) (*DeleteProgressResponse, error)
}

// unary adapts a typed method to grpc's untyped handler signature.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			})
		},
	}
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(CatalogServiceName, "ListAnime", CatalogServer.ListAnime),
		unary(CatalogServiceName, "GetAnime", CatalogServer.GetAnime),
		unary(CatalogServiceName, "ListSeries", CatalogServer.ListSeries),
		unary(CatalogServiceName, "ExtractSeries", CatalogServer.ExtractSeries),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "animehub/catalog",
}

var ProgressServiceDesc = grpc.ServiceDesc{
	ServiceName: ProgressServiceName,
	HandlerType: (*ProgressServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ProgressServiceName, "ListProgress", ProgressServer.ListProgress),
		unary(ProgressServiceName, "GetProgress", ProgressServer.GetProgress),
		unary(ProgressServiceName, "UpsertProgress", ProgressServer.UpsertProgress),
		unary(ProgressServiceName, "DeleteProgress", ProgressServer.DeleteProgress),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "animehub/progress",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

func RegisterProgressServer(s grpc.ServiceRegistrar, srv ProgressServer) {
	s.RegisterService(&ProgressServiceDesc, srv)
}
