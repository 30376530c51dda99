package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/dmarquez/tasknestbackend/mailer"
	"github.com/dmarquez/tasknestbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeUserLookup struct {
	byID map[bson.ObjectID]*models.User
}

func (f *fakeUserLookup) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, assert.AnError
	}
	return u, nil
}

type captureSender struct {
	sent []mailer.Message
}

func (c *captureSender) Send(m mailer.Message) error {
	c.sent = append(c.sent, m)
	return nil
}

func TestMailNotifierPrefersAssignee(t *testing.T) {
	owner := &models.User{ID: bson.NewObjectID(), Name: "Owner", Email: "owner@example.com"}
	assignee := &models.User{ID: bson.NewObjectID(), Name: "Assignee", Email: "assignee@example.com"}
	users := &fakeUserLookup{byID: map[bson.ObjectID]*models.User{owner.ID: owner, assignee.ID: assignee}}
	sender := &captureSender{}

	n := NewMailNotifier(users, sender)
	todo := models.Todo{ID: bson.NewObjectID(), OwnerID: owner.ID, AssigneeID: &assignee.ID, Title: "t"}
	require.NoError(t, n.NotifyDue(context.Background(), todo))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "assignee@example.com", sender.sent[0].To)
}

func TestMailNotifierFallsBackToOwner(t *testing.T) {
	owner := &models.User{ID: bson.NewObjectID(), Name: "Owner", Email: "owner@example.com"}
	users := &fakeUserLookup{byID: map[bson.ObjectID]*models.User{owner.ID: owner}}
	sender := &captureSender{}

	n := NewMailNotifier(users, sender)
	require.NoError(t, n.NotifyDue(context.Background(), models.Todo{ID: bson.NewObjectID(), OwnerID: owner.ID}))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "owner@example.com", sender.sent[0].To)
}

func TestMailNotifierSkipsDeactivatedRecipient(t *testing.T) {
	deleted := time.Now().UTC()
	owner := &models.User{ID: bson.NewObjectID(), Email: "gone@example.com", DeletedAt: &deleted}
	users := &fakeUserLookup{byID: map[bson.ObjectID]*models.User{owner.ID: owner}}
	sender := &captureSender{}

	n := NewMailNotifier(users, sender)
	err := n.NotifyDue(context.Background(), models.Todo{ID: bson.NewObjectID(), OwnerID: owner.ID})

	assert.NoError(t, err, "deactivated recipient counts as delivered")
	assert.Empty(t, sender.sent)
}
