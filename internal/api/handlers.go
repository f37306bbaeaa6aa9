package api

import (
	"encoding/json"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

// FromProtoIncident maps a gRPC request struct into a domain IncidentInput.
// Struct fields carry no order, so metrics are read in lexical key order.
func FromProtoIncident(req *structpb.Struct) (models.IncidentInput, error) {
	if req == nil {
		return models.IncidentInput{}, fmt.Errorf("request is nil")
	}
	fields := req.GetFields()

	var input models.IncidentInput
	if v, ok := fields["description"]; ok && !isNull(v) {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return models.IncidentInput{}, fmt.Errorf("description must be a string")
		}
		input.Description = s.StringValue
	}
	if input.Description == "" {
		return models.IncidentInput{}, fmt.Errorf("description is required")
	}

	if v, ok := fields["logs"]; ok && !isNull(v) {
		list := v.GetListValue()
		if list == nil {
			return models.IncidentInput{}, fmt.Errorf("logs must be a list of strings")
		}
		for i, item := range list.GetValues() {
			s, ok := item.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return models.IncidentInput{}, fmt.Errorf("logs[%d] must be a string", i)
			}
			input.Logs = append(input.Logs, s.StringValue)
		}
	}

	if v, ok := fields["metrics"]; ok && !isNull(v) {
		obj := v.GetStructValue()
		if obj == nil {
			return models.IncidentInput{}, fmt.Errorf("metrics must be an object")
		}
		names := make([]string, 0, len(obj.GetFields()))
		for name := range obj.GetFields() {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			input.Metrics = append(input.Metrics, models.MetricReading{Name: name, Value: obj.GetFields()[name].AsInterface()})
		}
	}

	return input, nil
}

// ToProtoJob converts a job snapshot into its JSON-shaped Struct.
func ToProtoJob(job models.Job) (*structpb.Struct, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert job: %w", err)
	}
	return out, nil
}

// ToProtoJobs converts job snapshots into a ListValue, preserving order.
func ToProtoJobs(jobs []models.Job) (*structpb.ListValue, error) {
	if jobs == nil {
		jobs = []models.Job{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		return nil, fmt.Errorf("encode jobs: %w", err)
	}
	out := &structpb.ListValue{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert jobs: %w", err)
	}
	return out, nil
}

// FromProtoJob decodes a job Struct returned by the service.
func FromProtoJob(msg *structpb.Struct) (models.Job, error) {
	var job models.Job
	if msg == nil {
		return job, fmt.Errorf("job is nil")
	}
	data, err := protojson.Marshal(msg)
	if err != nil {
		return job, fmt.Errorf("encode job: %w", err)
	}
	if err := json.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func isNull(v *structpb.Value) bool {
	_, ok := v.GetKind().(*structpb.Value_NullValue)
	return ok
}
