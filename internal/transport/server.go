// Package transport carries receiver feedback between processes over gRPC.
// Records travel in their fixed 32-byte layout inside a
// google.protobuf.BytesValue.
package transport

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/pkg/logger"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "crts.feedback.v1.FeedbackService"
	// PublishMethod is the full method name of Publish.
	PublishMethod = "/" + ServiceName + "/Publish"
)

// FeedbackServiceServer is the server API for the feedback service.
type FeedbackServiceServer interface {
	Publish(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
}

// Server accepts feedback records and hands them to a local publisher,
// normally the controller's feedback.Channel.
type Server struct {
	out    feedback.Publisher
	logger *slog.Logger
}

// NewServer creates a feedback server publishing into out.
func NewServer(out feedback.Publisher) *Server {
	return &Server{out: out, logger: logger.Default}
}

// SetLogger sets a custom logger for the server
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
}

// Publish decodes one record and forwards it.
func (s *Server) Publish(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "record is required")
	}
	rec, err := feedback.UnmarshalRecord(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.out.Publish(rec); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	s.logger.Debug("feedback received",
		"frame", rec.Iteration,
		"header_valid", rec.HeaderValid,
		"payload_valid", rec.PayloadValid)
	return &emptypb.Empty{}, nil
}

// Register attaches srv to a gRPC server.
func Register(r grpc.ServiceRegistrar, srv FeedbackServiceServer) {
	r.RegisterService(&feedbackServiceDesc, srv)
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedbackServiceServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PublishMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FeedbackServiceServer).Publish(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var feedbackServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeedbackServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Publish",
			Handler:    publishHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "crts/feedback/v1/feedback.proto",
}
