package rpc

import (
	"context"

	"google.golang.org/grpc"

	"feed/model"
)

const serviceName = "feed.TweetService"

type InfiniteFeedRequest struct {
	AuthorID string `json:"authorId,omitempty"`
	Cursor   string `json:"cursor,omitempty"`
	Limit    int    `json:"limit"`
}

type ToggleLikeRequest struct {
	TweetID string `json:"tweetId"`
}

type GetProfileRequest struct {
	UserID string `json:"userId"`
}

type TweetServiceServer interface {
	InfiniteFeed(context.Context, *InfiniteFeedRequest) (*model.Page, error)
	ToggleLike(context.Context, *ToggleLikeRequest) (*model.ToggleLikeResult, error)
	GetProfile(context.Context, *GetProfileRequest) (*model.Profile, error)
}

func RegisterTweetServiceServer(s grpc.ServiceRegistrar, srv TweetServiceServer) {
	s.RegisterService(&TweetService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(TweetServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TweetServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TweetServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var TweetService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TweetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("InfiniteFeed", TweetServiceServer.InfiniteFeed),
		unaryHandler("ToggleLike", TweetServiceServer.ToggleLike),
		unaryHandler("GetProfile", TweetServiceServer.GetProfile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "feed/rpc",
}

type TweetServiceClient interface {
	InfiniteFeed(ctx context.Context, in *InfiniteFeedRequest, opts ...grpc.CallOption) (*model.Page, error)
	ToggleLike(ctx context.Context, in *ToggleLikeRequest, opts ...grpc.CallOption) (*model.ToggleLikeResult, error)
	GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*model.Profile, error)
}

type tweetServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTweetServiceClient(cc grpc.ClientConnInterface) TweetServiceClient {
	return &tweetServiceClient{cc}
}

func (c *tweetServiceClient) invoke(ctx context.Context, method string, in interface{}, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *tweetServiceClient) InfiniteFeed(ctx context.Context, in *InfiniteFeedRequest, opts ...grpc.CallOption) (*model.Page, error) {
	out := new(model.Page)
	if err := c.invoke(ctx, "InfiniteFeed", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tweetServiceClient) ToggleLike(ctx context.Context, in *ToggleLikeRequest, opts ...grpc.CallOption) (*model.ToggleLikeResult, error) {
	out := new(model.ToggleLikeResult)
	if err := c.invoke(ctx, "ToggleLike", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tweetServiceClient) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*model.Profile, error) {
	out := new(model.Profile)
	if err := c.invoke(ctx, "GetProfile", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
