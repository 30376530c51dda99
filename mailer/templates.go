package mailer

import (
	"fmt"

	"github.com/dmarquez/tasknestbackend/models"
)

// Pure template functions mapping entities to messages. Keeping them free
// of I/O lets the copy be asserted in tests.

func TaskAssigned(assignee *models.User, actorName string, todo *models.Todo) Message {
	return Message{
		To:      assignee.Email,
		Subject: fmt.Sprintf("You were assigned: %s", todo.Title),
		Body: fmt.Sprintf(
			"Hi %s,\n\n%s assigned the task %q to you (priority: %s).\n\nLog in to view the details.",
			assignee.Name, actorName, todo.Title, todo.Priority,
		),
	}
}

func TaskUpdated(assignee *models.User, actorName string, todo *models.Todo) Message {
	return Message{
		To:      assignee.Email,
		Subject: fmt.Sprintf("Task updated: %s", todo.Title),
		Body: fmt.Sprintf(
			"Hi %s,\n\n%s updated the task %q assigned to you. Current status: %s.",
			assignee.Name, actorName, todo.Title, todo.Status,
		),
	}
}

func TaskDue(assignee *models.User, todo *models.Todo) Message {
	due := ""
	if todo.DueDate != nil {
		due = todo.DueDate.Format("Mon, 02 Jan 2006 15:04 MST")
	}
	return Message{
		To:      assignee.Email,
		Subject: fmt.Sprintf("Reminder: %q is due soon", todo.Title),
		Body: fmt.Sprintf(
			"Hi %s,\n\nThe task %q is due %s.",
			assignee.Name, todo.Title, due,
		),
	}
}

func Promotion(user *models.User) Message {
	return Message{
		To:      user.Email,
		Subject: "Your account was promoted to administrator",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYou now have administrator access. You will need to sign in again for the change to take effect.",
			user.Name,
		),
	}
}

func Demotion(user *models.User) Message {
	return Message{
		To:      user.Email,
		Subject: "Your account role was changed",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour administrator access has been removed. You will need to sign in again.",
			user.Name,
		),
	}
}
