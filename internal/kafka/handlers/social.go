package handlers

import (
	"encoding/json"

	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/messages"
)

const TopicSocial = "social-events"

func init() {
	Register(TopicSocial, "COMMENT_CREATED", handleCommentCreated)
	Register(TopicSocial, "POST_LIKED", handlePostLiked)
	Register(TopicSocial, "USER_FOLLOWED", handleUserFollowed)
	Register(TopicSocial, "MESSAGE_SENT", handleMessageSent)
}

type socialEnv struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Payload   struct {
		RecipientID    string `json:"recipientId"`
		ActorID        string `json:"actorId"`
		ActorName      string `json:"actorName"`
		PostID         string `json:"postId"`
		ConversationID string `json:"conversationId"`
		Text           string `json:"text"`
	} `json:"payload"`
}

// parseSocialEnv decodes the envelope and drops events a user caused on their own content.
func parseSocialEnv(data []byte) (*socialEnv, bool) {
	var env socialEnv
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.Payload.RecipientID == "" || env.Payload.RecipientID == env.Payload.ActorID {
		return nil, false
	}
	return &env, true
}

func request(env *socialEnv, p domain.Payload) *domain.NotificationRequest {
	p.ActorID = env.Payload.ActorID
	req, err := domain.NewNotificationRequest(env.Payload.RecipientID, p)
	if err != nil {
		return nil
	}
	req.SourceEventID = env.EventID
	return &req
}

func handleCommentCreated(data []byte) *domain.NotificationRequest {
	env, ok := parseSocialEnv(data)
	if !ok {
		return nil
	}
	title, body := messages.Comment(env.Payload.ActorName)
	return request(env, domain.Payload{
		Title:       title,
		Body:        body,
		Type:        domain.TypeComment,
		ReferenceID: env.Payload.PostID,
		URL:         "/feed",
	})
}

func handlePostLiked(data []byte) *domain.NotificationRequest {
	env, ok := parseSocialEnv(data)
	if !ok {
		return nil
	}
	title, body := messages.Like(env.Payload.ActorName)
	return request(env, domain.Payload{
		Title:       title,
		Body:        body,
		Type:        domain.TypeLike,
		ReferenceID: env.Payload.PostID,
		URL:         "/feed",
	})
}

func handleUserFollowed(data []byte) *domain.NotificationRequest {
	env, ok := parseSocialEnv(data)
	if !ok {
		return nil
	}
	title, body := messages.Follow(env.Payload.ActorName)
	return request(env, domain.Payload{
		Title:       title,
		Body:        body,
		Type:        domain.TypeFollow,
		ReferenceID: env.Payload.ActorID,
		URL:         "/profile/" + env.Payload.ActorID,
	})
}

func handleMessageSent(data []byte) *domain.NotificationRequest {
	env, ok := parseSocialEnv(data)
	if !ok {
		return nil
	}
	title, body := messages.Message(env.Payload.ActorName, env.Payload.Text)
	return request(env, domain.Payload{
		Title:       title,
		Body:        body,
		Type:        domain.TypeMessage,
		ReferenceID: env.Payload.ConversationID,
		URL:         "/chat/" + env.Payload.ConversationID,
	})
}
