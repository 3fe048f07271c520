package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/extract"
)

const (
	ExtractorServiceName = "expenses.v1.ReceiptExtractor"
	ExtractMethod        = "/" + ExtractorServiceName + "/Extract"
)

// ReceiptExtractorServer turns OCR lines into a draft expense.
// Messages are google.protobuf.Struct so clients need no generated stubs.
type ReceiptExtractorServer interface {
	Extract(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ReceiptExtractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractorServiceName,
	HandlerType: (*ReceiptExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "expenses/v1/extractor.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReceiptExtractorServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReceiptExtractorServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type ExtractorService struct {
	extractor *extract.Extractor
	logger    *slog.Logger
}

func NewExtractorService(extractor *extract.Extractor, logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extract.NewExtractor(extract.WithLogger(logger))
	}
	return &ExtractorService{extractor: extractor, logger: logger}
}

// Extract expects {"lines": [string...]}.
func (s *ExtractorService) Extract(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	field, ok := in.GetFields()["lines"]
	if !ok {
		return nil, common.InvalidArgumentError("lines is required")
	}
	list := field.GetListValue()
	if list == nil {
		return nil, common.InvalidArgumentError("lines must be a list of strings")
	}
	lines := make([]string, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		sv, isString := v.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, common.InvalidArgumentErrorf("lines[%d] must be a string", i)
		}
		lines = append(lines, sv.StringValue)
	}

	draft := s.extractor.Extract(lines)
	var amount any
	if draft.Amount.Valid {
		amount = draft.Amount.Decimal.StringFixed(2)
	}
	out, err := structpb.NewStruct(map[string]any{
		"merchant": draft.Merchant,
		"amount":   amount,
		"date":     draft.Date,
		"category": string(draft.Category),
	})
	if err != nil {
		s.logger.Error("failed to encode draft", "error", err)
		return nil, common.InternalError("encode draft")
	}
	return out, nil
}

// NewGRPCServer registers the extractor and the standard health service.
func NewGRPCServer(svc ReceiptExtractorServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger(logger)))
	srv.RegisterService(&ReceiptExtractorServiceDesc, svc)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ExtractorServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return srv, hs
}

func unaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
