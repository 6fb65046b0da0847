package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/rental-events", topicResourceName("p1", "rental-events"))
	assert.Equal(t, "projects/other/topics/x", topicResourceName("p1", "projects/other/topics/x"))
	assert.Equal(t, "", topicResourceName("p1", "  "))
	assert.Equal(t, "", topicResourceName("", "rental-events"))
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{RentalTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errTopicRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("t"))
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
