package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskAIReply is a delayed AI reply for a specific inbound message.
const TaskAIReply = "messages.ai_reply"

// TaskFollowUpSweep scans for leads whose follow-up is due and nudges them.
const TaskFollowUpSweep = "leads.follow_up_sweep"

// TaskStuckCallRepair force-fails calls abandoned mid-flight by the provider.
const TaskStuckCallRepair = "calls.stuck_repair"

type AIReplyPayload struct {
	LeadID    string `json:"leadId"`
	MessageID string `json:"messageId"`
}

func NewAIReplyTask(payload AIReplyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAIReply, data), nil
}

func ParseAIReplyPayload(task *asynq.Task) (AIReplyPayload, error) {
	var payload AIReplyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AIReplyPayload{}, err
	}
	return payload, nil
}

func NewFollowUpSweepTask() *asynq.Task {
	return asynq.NewTask(TaskFollowUpSweep, nil)
}

func NewStuckCallRepairTask() *asynq.Task {
	return asynq.NewTask(TaskStuckCallRepair, nil)
}
