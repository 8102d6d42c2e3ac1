package chartsvc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Client calls a remote chart service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ComputeChartRaw returns the undecoded response.
func (c *Client) ComputeChartRaw(ctx context.Context, instant time.Time, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ComputeChartMethod, timestamppb.New(instant), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeChart requests the chart for instant and decodes it.
func (c *Client) ComputeChart(ctx context.Context, instant time.Time, opts ...grpc.CallOption) (*ChartView, error) {
	raw, err := c.ComputeChartRaw(ctx, instant, opts...)
	if err != nil {
		return nil, err
	}
	view, err := DecodeChart(raw)
	if err != nil {
		return nil, fmt.Errorf("compute chart: %w", err)
	}
	return view, nil
}

// Topology fetches the reference data description.
func (c *Client) Topology(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TopologyMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
