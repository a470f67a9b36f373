package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"presensi-backend/internal/geofence"
	"presensi-backend/internal/models"
)

// NotificationService schedules user-facing alerts for geofence transitions
// and clock confirmations. Delivery goes over the event bus; it is not
// correctness-critical to attendance tracking, so every failure is logged
// and swallowed. It implements geofence.Notifier; the monitor has already
// applied the region's notify flags and the short debounce window before
// calling in.
type NotificationService struct {
	bus *EventBus
}

func NewNotificationService(bus *EventBus) *NotificationService {
	return &NotificationService{bus: bus}
}

func (n *NotificationService) Notify(ctx context.Context, userID int64, event geofence.Event, region *geofence.Region, at time.Time) {
	title, body := notificationContent(event, region)
	if title == "" {
		return
	}

	err := n.bus.Publish(ctx, userID, "notification", models.Notification{
		Title:        title,
		Body:         body,
		SoundEnabled: true,
		Priority:     "high",
		At:           at.UTC(),
	})
	if err != nil {
		log.Printf("notifications: failed to schedule %s alert for user %d: %v", event, userID, err)
	}
}

func notificationContent(event geofence.Event, region *geofence.Region) (string, string) {
	switch event {
	case geofence.EventEnter:
		return "Welcome to the office",
			fmt.Sprintf("You entered %s and were clocked in automatically.", region.ID)
	case geofence.EventExit:
		return "See you tomorrow",
			fmt.Sprintf("You left %s and were clocked out automatically.", region.ID)
	}
	return "", ""
}
