package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "copilot.v1.IncidentAnalysis"

const (
	startAnalysisMethod = "/" + ServiceName + "/StartAnalysis"
	getStatusMethod     = "/" + ServiceName + "/GetStatus"
	listJobsMethod      = "/" + ServiceName + "/ListJobs"
)

// IncidentAnalysisServer is the server API for the IncidentAnalysis service.
// Messages are protobuf well-known types carrying the JSON job shape.
type IncidentAnalysisServer interface {
	StartAnalysis(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListJobs(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// RegisterIncidentAnalysisServer attaches srv to the gRPC registrar.
func RegisterIncidentAnalysisServer(s grpc.ServiceRegistrar, srv IncidentAnalysisServer) {
	s.RegisterService(&IncidentAnalysisServiceDesc, srv)
}

// IncidentAnalysisServiceDesc describes the IncidentAnalysis service.
var IncidentAnalysisServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IncidentAnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartAnalysis", Handler: startAnalysisHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "ListJobs", Handler: listJobsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "copilot/v1/incident_analysis.proto",
}

func startAnalysisHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IncidentAnalysisServer).StartAnalysis(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: startAnalysisMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IncidentAnalysisServer).StartAnalysis(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IncidentAnalysisServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IncidentAnalysisServer).GetStatus(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listJobsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IncidentAnalysisServer).ListJobs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listJobsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IncidentAnalysisServer).ListJobs(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// IncidentAnalysisClient calls the IncidentAnalysis service.
type IncidentAnalysisClient struct {
	cc grpc.ClientConnInterface
}

// NewIncidentAnalysisClient wraps an established client connection.
func NewIncidentAnalysisClient(cc grpc.ClientConnInterface) *IncidentAnalysisClient {
	return &IncidentAnalysisClient{cc: cc}
}

func (c *IncidentAnalysisClient) StartAnalysis(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, startAnalysisMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IncidentAnalysisClient) GetStatus(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IncidentAnalysisClient) ListJobs(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, listJobsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
