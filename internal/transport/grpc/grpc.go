// Package grpc implements the gRPC transport for pcast.
//
// The service pcast.v1.Podcaster is described by hand and carries the shared
// message types with a JSON codec (content-subtype "json"), so no generated
// stubs are needed. Generate is unary; GenerateStream sends progress frames
// followed by the final result. The standard gRPC health service is
// registered alongside it.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/4xachi/pcast/internal/message"
	"github.com/4xachi/pcast/internal/podcast"
	"github.com/4xachi/pcast/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pcast.v1.Podcaster"

// jsonCodec marshals the message types as JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Frame is one message of the GenerateStream response: either a progress
// update or, last, the result.
type Frame struct {
	Progress *message.Progress `json:"progress,omitempty"`
	Result   *message.Result   `json:"result,omitempty"`
}

// podcasterServer is the service implementation contract.
type podcasterServer interface {
	Generate(ctx context.Context, req *message.Request) (*message.Result, error)
	GenerateStream(req *message.Request, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*podcasterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: generateHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GenerateStream", Handler: generateStreamHandler, ServerStreams: true},
	},
	Metadata: "pcast/v1/podcaster.proto",
}

func generateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(podcasterServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Generate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(podcasterServer).Generate(ctx, req.(*message.Request))
	}
	return interceptor(ctx, in, info, handler)
}

func generateStreamHandler(srv any, stream grpc.ServerStream) error {
	in := new(message.Request)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(podcasterServer).GenerateStream(in, stream)
}

// service adapts a transport.Handler to the gRPC service.
type service struct {
	handler transport.Handler
}

func (s *service) Generate(ctx context.Context, req *message.Request) (*message.Result, error) {
	res, err := s.handler(ctx, req, nil)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if res.Error != "" {
		return nil, status.Error(codeFor(podcast.Kind(res.Kind)), res.Error)
	}
	return res, nil
}

func (s *service) GenerateStream(req *message.Request, stream grpc.ServerStream) error {
	var sendErr error
	res, err := s.handler(stream.Context(), req, func(p message.Progress) {
		if sendErr == nil {
			sendErr = stream.SendMsg(&Frame{Progress: &p})
		}
	})
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if sendErr != nil {
		return sendErr
	}
	return stream.SendMsg(&Frame{Result: res})
}

// codeFor maps an error kind to a gRPC status code.
func codeFor(kind podcast.Kind) codes.Code {
	switch kind {
	case podcast.KindConfiguration:
		return codes.InvalidArgument
	case podcast.KindGeneration, podcast.KindSynthesis:
		return codes.Unavailable
	case podcast.KindParse:
		return codes.FailedPrecondition
	case podcast.KindCanceled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, handler)
}

// Serve runs the gRPC server on lis until the context is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	t.server = grpc.NewServer()
	t.server.RegisterService(&serviceDesc, &service{handler: handler})

	t.health = health.NewServer()
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	if err := t.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// Client calls pcast.v1.Podcaster over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Generate runs one podcast request.
func (c *Client) Generate(ctx context.Context, req *message.Request) (*message.Result, error) {
	out := new(message.Result)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Generate", req, out, grpc.CallContentSubtype("json")); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateStream runs one podcast request, passing progress frames to
// progress and returning the final result.
func (c *Client) GenerateStream(ctx context.Context, req *message.Request, progress func(message.Progress)) (*message.Result, error) {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], "/"+ServiceName+"/GenerateStream", grpc.CallContentSubtype("json"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	for {
		var f Frame
		if err := stream.RecvMsg(&f); err != nil {
			return nil, err
		}
		switch {
		case f.Result != nil:
			return f.Result, nil
		case f.Progress != nil && progress != nil:
			progress(*f.Progress)
		}
	}
}
