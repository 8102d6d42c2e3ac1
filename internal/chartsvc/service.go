// Package chartsvc serves chart computations over gRPC. Requests and
// responses use protobuf well-known types, so no generated stubs are needed:
// ComputeChart takes a google.protobuf.Timestamp and answers with a
// google.protobuf.Struct, and Topology takes google.protobuf.Empty.
package chartsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "bodygraph.v1.ChartService"

	ComputeChartMethod = "/" + ServiceName + "/ComputeChart"
	TopologyMethod     = "/" + ServiceName + "/Topology"
)

// ChartServiceServer is the server API for the chart service.
type ChartServiceServer interface {
	ComputeChart(context.Context, *timestamppb.Timestamp) (*structpb.Struct, error)
	Topology(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterChartServiceServer registers srv on s.
func RegisterChartServiceServer(s grpc.ServiceRegistrar, srv ChartServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the chart service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComputeChart", Handler: computeChartHandler},
		{MethodName: "Topology", Handler: topologyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bodygraph/v1/chart_service.proto",
}

func computeChartHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(timestamppb.Timestamp)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChartServiceServer).ComputeChart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ComputeChartMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChartServiceServer).ComputeChart(ctx, req.(*timestamppb.Timestamp))
	}
	return interceptor(ctx, in, info, handler)
}

func topologyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChartServiceServer).Topology(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TopologyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChartServiceServer).Topology(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
