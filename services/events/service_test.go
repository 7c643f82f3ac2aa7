package events

import (
	"context"
	"testing"

	"github.com/flashtalk/flashtalk/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewService_Disabled(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.Events.Enabled = false

	service := NewService(cfg, nil)
	assert.Nil(t, service)
}

func TestService_Publish_NilSafe(t *testing.T) {
	var service *Service

	service.Publish(context.Background(), TopicAuth, Event{
		Kind:   "user.login",
		UserID: uuid.New(),
	})
	assert.NoError(t, service.Close())
}
