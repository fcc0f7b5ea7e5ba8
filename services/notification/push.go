package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// PushSender is satisfied by *messaging.Client.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

func staffBookingPush(n BookingNotice) *messaging.Message {
	return &messaging.Message{
		Token: n.StaffFCMToken,
		Notification: &messaging.Notification{
			Title: "Nueva cita reservada 📅",
			Body:  fmt.Sprintf("%s reservó %s el %s", n.ClientName, n.ServiceName, n.Start.Format(displayLayout)),
		},
		Data: map[string]string{
			"type":          "new_booking",
			"role":          "staff",
			"appointmentId": n.AppointmentID,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
