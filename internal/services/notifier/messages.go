package notifier

import (
	"fmt"

	"github.com/NordCoder/Alive/internal/domain/notification"
)

const testMarker = "[TEST] "

func ReminderMessage(nickname string) notification.Message {
	return notification.Message{
		Subject: fmt.Sprintf("%s check-in reminder", nickname),
		Body:    fmt.Sprintf("I am %s. I have not checked in for several days, please check on me.", nickname),
	}
}

func ProbeMessage(nickname string, ch notification.Channel) notification.Message {
	return notification.Message{
		Subject: testMarker + fmt.Sprintf("%s check-in reminder", nickname),
		Body:    testMarker + fmt.Sprintf("I am %s. This is a test notification confirming that the %s channel works.", nickname, ch),
	}
}
