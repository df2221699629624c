package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realtime-service/internal/models"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, channelID string, event models.Event) {
	m.Called(ctx, channelID, event)
}

type DirectSenderMock struct {
	mock.Mock
}

func (m *DirectSenderMock) SendToUser(namespace, userID string, event models.Event) int {
	args := m.Called(namespace, userID, event)
	return args.Int(0)
}

type QueuePublisherMock struct {
	mock.Mock
}

func (m *QueuePublisherMock) PublishQueued(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *QueuePublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
