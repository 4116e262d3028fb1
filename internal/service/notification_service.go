package service

import (
	"context"
	"encoding/json"

	"lms_backend/internal/model"
	"lms_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const notificationChannel = "lms:notifications"

// NotificationService publishes attempt events for downstream consumers.
// Delivery is fire and forget: a failed publish is logged and never blocks
// the lifecycle transaction that produced it.
type NotificationService struct {
	Redis *redis.Client
}

func NewNotificationService(rdb *redis.Client) *NotificationService {
	return &NotificationService{Redis: rdb}
}

type attemptEvent struct {
	Type         string `json:"type"`
	AttemptID    string `json:"attempt_id"`
	AssessmentID string `json:"assessment_id"`
	UserID       uint   `json:"user_id"`
	Status       string `json:"status"`
	Score        string `json:"score,omitempty"`
}

func (s *NotificationService) NotifySubmission(ctx context.Context, attempt *model.AssessmentAttempt) {
	s.publish(ctx, "attempt.submitted", attempt)
}

func (s *NotificationService) NotifyGraded(ctx context.Context, attempt *model.AssessmentAttempt) {
	s.publish(ctx, "attempt.graded", attempt)
}

func (s *NotificationService) publish(ctx context.Context, eventType string, attempt *model.AssessmentAttempt) {
	if s.Redis == nil {
		return
	}
	event := attemptEvent{
		Type:         eventType,
		AttemptID:    attempt.ID,
		AssessmentID: attempt.AssessmentID,
		UserID:       attempt.UserID,
		Status:       string(attempt.Status),
	}
	if attempt.Score != nil {
		event.Score = attempt.Score.String()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("failed to encode notification", zap.Error(err))
		return
	}
	if err := s.Redis.Publish(ctx, notificationChannel, payload).Err(); err != nil {
		logger.Log.Warn("notification publish failed",
			zap.String("type", eventType),
			zap.String("attemptId", attempt.ID),
			zap.Error(err))
	}
}
