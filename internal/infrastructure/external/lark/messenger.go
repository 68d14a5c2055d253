package lark

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/design-bureau/internal/application/port"
)

// messageCreator is the IM endpoint used to post messages
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger implements port.MessageSender over the Lark IM API
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

var _ port.MessageSender = (*Messenger)(nil)

// NewMessenger creates a message sender on top of an SDK client
func NewMessenger(client *lark.Client, logger *zap.Logger) *Messenger {
	return &Messenger{messages: client.Im.Message, logger: logger}
}

// SendMessage sends a text message to the user identified by openID
func (m *Messenger) SendMessage(ctx context.Context, openID string, content string) error {
	if openID == "" {
		return fmt.Errorf("openID cannot be empty")
	}
	if content == "" {
		return fmt.Errorf("content cannot be empty")
	}

	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType("text").
			Content(string(body)).
			Build()).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", openID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", openID))
	return nil
}

// LogSender stands in for Lark when no app is configured. Messages are logged only.
type LogSender struct {
	logger *zap.Logger
}

var _ port.MessageSender = (*LogSender)(nil)

// NewLogSender creates a sender that only logs
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendMessage(ctx context.Context, openID string, content string) error {
	s.logger.Info("Notification (lark disabled)",
		zap.String("receive_id", openID),
		zap.String("content", content))
	return nil
}
