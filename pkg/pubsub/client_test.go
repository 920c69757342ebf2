package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/partstrack-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "proj-1"}

	assert.Equal(t, "projects/proj-1/topics/activity", c.topicResourceName(" activity "))
	assert.Equal(t, "projects/proj-1/subscriptions/activity-sub", c.subscriptionResourceName("activity-sub"))
	assert.Equal(t, "projects/other/topics/x", c.topicResourceName("projects/other/topics/x"))
	assert.Empty(t, c.topicResourceName(""))

	var nilClient *Client
	assert.Empty(t, nilClient.topicResourceName("activity"))
	assert.Nil(t, nilClient.ActivityPublisher())
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Empty(t, clientOptions(config.GCPConfig{}))
}
