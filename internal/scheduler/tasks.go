package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const TaskRefreshSearchableFields = "entities.searchable_fields.refresh"

type RefreshSearchableFieldsPayload struct {
	Collection string `json:"collection"`
}

func NewRefreshSearchableFieldsTask(payload RefreshSearchableFieldsPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.Collection) == "" {
		return nil, fmt.Errorf("refresh searchable fields: collection is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefreshSearchableFields, data), nil
}

func ParseRefreshSearchableFieldsPayload(task *asynq.Task) (RefreshSearchableFieldsPayload, error) {
	var payload RefreshSearchableFieldsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RefreshSearchableFieldsPayload{}, err
	}
	if strings.TrimSpace(payload.Collection) == "" {
		return RefreshSearchableFieldsPayload{}, fmt.Errorf("refresh searchable fields: collection is required")
	}
	return payload, nil
}
