package handlers

import (
	"encoding/json"

	"terangahub.app/push/internal/domain"
)

const TopicCommands = "push-commands"

func init() {
	RegisterDirect(TopicCommands, handleDirectCommand)
}

// handleDirectCommand forwards an application-defined payload verbatim.
func handleDirectCommand(data []byte) *domain.NotificationRequest {
	var cmd struct {
		CommandID string          `json:"commandId"`
		UserID    string          `json:"userId"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil
	}
	if cmd.UserID == "" || len(cmd.Payload) == 0 {
		return nil
	}
	return &domain.NotificationRequest{
		TargetUserID:  cmd.UserID,
		Payload:       cmd.Payload,
		SourceEventID: cmd.CommandID,
	}
}
