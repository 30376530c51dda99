package scheduler

import (
	"context"

	"github.com/dmarquez/tasknestbackend/mailer"
	"github.com/dmarquez/tasknestbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserLookup interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
}

// MailNotifier emails the assignee (or the owner for unassigned todos).
// Unlike regular notification email this send is synchronous: the reminder
// flag must only stick when dispatch actually succeeded.
type MailNotifier struct {
	users  UserLookup
	sender mailer.Sender
}

func NewMailNotifier(users UserLookup, sender mailer.Sender) *MailNotifier {
	return &MailNotifier{users: users, sender: sender}
}

func (n *MailNotifier) NotifyDue(ctx context.Context, todo models.Todo) error {
	recipientID := todo.OwnerID
	if todo.AssigneeID != nil {
		recipientID = *todo.AssigneeID
	}

	user, err := n.users.FindByID(ctx, recipientID)
	if err != nil {
		return err
	}
	if !user.IsActive() {
		// Nobody to remind; treat as delivered.
		return nil
	}

	return n.sender.Send(mailer.TaskDue(user, &todo))
}
