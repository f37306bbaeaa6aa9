package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/miradorstack/mirador-copilot/internal/api"
	"github.com/miradorstack/mirador-copilot/internal/workflow"
)

// IncidentService implements the gRPC IncidentAnalysis service.
type IncidentService struct {
	logger     *slog.Logger
	controller api.JobController
}

// NewIncidentService constructs the incident analysis service facade.
func NewIncidentService(logger *slog.Logger, controller api.JobController) *IncidentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncidentService{logger: logger, controller: controller}
}

// StartAnalysis submits an incident and returns the initial job snapshot.
func (s *IncidentService) StartAnalysis(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.controller == nil {
		return nil, status.Error(codes.FailedPrecondition, "workflow not configured")
	}

	input, err := api.FromProtoIncident(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	jobID, err := s.controller.StartAnalysis(ctx, input)
	if err != nil {
		s.logger.Error("start analysis failed", slog.Any("error", err))
		return nil, status.Errorf(codes.Internal, "start analysis: %v", err)
	}
	s.logger.Debug("StartAnalysis called", slog.String("job_id", jobID), slog.Int("metrics", len(input.Metrics)))

	return s.snapshot(jobID)
}

// GetStatus returns the current snapshot of one job.
func (s *IncidentService) GetStatus(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.controller == nil {
		return nil, status.Error(codes.FailedPrecondition, "workflow not configured")
	}
	jobID := strings.TrimSpace(req.GetValue())
	if jobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job id is required")
	}
	return s.snapshot(jobID)
}

// ListJobs returns every job snapshot in submission order.
func (s *IncidentService) ListJobs(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	if s.controller == nil {
		return nil, status.Error(codes.FailedPrecondition, "workflow not configured")
	}
	list, err := api.ToProtoJobs(s.controller.ListJobs())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return list, nil
}

func (s *IncidentService) snapshot(jobID string) (*structpb.Struct, error) {
	job, err := s.controller.GetStatus(jobID)
	if errors.Is(err, workflow.ErrJobNotFound) {
		return nil, status.Error(codes.NotFound, "Incident job not found")
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	msg, err := api.ToProtoJob(job)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}
