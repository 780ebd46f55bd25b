package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/batch"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/progress"
)

// ProgressSource is the requirement-extraction progress store.
type ProgressSource interface {
	Get(jobID string) (progress.Progress, bool)
}

// BatchSource reports submitted batches.
type BatchSource interface {
	Status(batchID string) (batch.Status, bool)
}

// ProgressServiceServer is the server API for solicitation.v1.ProgressService.
type ProgressServiceServer interface {
	GetProgress(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetBatchStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

const progressServiceName = "solicitation.v1.ProgressService"

// ProgressService polls extraction progress and batch status over gRPC.
type ProgressService struct {
	progress ProgressSource
	batches  BatchSource
	logger   *slog.Logger
}

func NewProgressService(p ProgressSource, b BatchSource, logger *slog.Logger) *ProgressService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{progress: p, batches: b, logger: logger}
}

func (s *ProgressService) GetProgress(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if err := common.ValidateAndReturnError(common.NewValidator().Field("job_id", id, common.Required)); err != nil {
		return nil, err
	}
	if s.progress == nil {
		return nil, status.Error(codes.Unavailable, "progress tracking is not enabled")
	}
	p, ok := s.progress.Get(id)
	if !ok {
		return nil, common.NotFoundErrorf("no progress for job %s", id)
	}
	return s.toStruct(p, map[string]any{"percent": p.Percent()})
}

func (s *ProgressService) GetBatchStatus(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if err := common.ValidateAndReturnError(common.NewValidator().Field("batch_id", id, common.Required)); err != nil {
		return nil, err
	}
	if s.batches == nil {
		return nil, status.Error(codes.Unavailable, "batch queue is not enabled")
	}
	st, ok := s.batches.Status(id)
	if !ok {
		return nil, common.NotFoundErrorf("unknown batch %s", id)
	}
	return s.toStruct(st, nil)
}

// toStruct round-trips v through its JSON form so the wire shape matches
// the HTTP API.
func (s *ProgressService) toStruct(v any, extra map[string]any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("decode: %v", err)
	}
	for k, v := range extra {
		m[k] = v
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		s.logger.Error("progress struct conversion failed", "error", err)
		return nil, common.InternalErrorf("convert: %v", err)
	}
	return out, nil
}

// RegisterProgressServiceServer registers srv on s.
func RegisterProgressServiceServer(s grpc.ServiceRegistrar, srv ProgressServiceServer) {
	s.RegisterService(&ProgressService_ServiceDesc, srv)
}

func getProgressHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProgressServiceServer).GetProgress(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + progressServiceName + "/GetProgress"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProgressServiceServer).GetProgress(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getBatchStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProgressServiceServer).GetBatchStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + progressServiceName + "/GetBatchStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProgressServiceServer).GetBatchStatus(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ProgressService_ServiceDesc describes solicitation.v1.ProgressService. The
// messages are protobuf well-known types, so no generated code is needed.
var ProgressService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: progressServiceName,
	HandlerType: (*ProgressServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProgress", Handler: getProgressHandler},
		{MethodName: "GetBatchStatus", Handler: getBatchStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "solicitation/v1/progress.proto",
}

// ProgressServiceClient is the client API for solicitation.v1.ProgressService.
type ProgressServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewProgressServiceClient(cc grpc.ClientConnInterface) *ProgressServiceClient {
	return &ProgressServiceClient{cc: cc}
}

func (c *ProgressServiceClient) GetProgress(ctx context.Context, jobID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+progressServiceName+"/GetProgress", wrapperspb.String(jobID), out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ProgressServiceClient) GetBatchStatus(ctx context.Context, batchID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+progressServiceName+"/GetBatchStatus", wrapperspb.String(batchID), out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
