package notification

import (
	"context"
	"strconv"

	"computer-inventory/internal/notification"
	"computer-inventory/internal/service"
)

// ServiceAdapter adapts the notification client to the service layer interface
type ServiceAdapter struct {
	client notification.Notifier
}

// NewServiceAdapter creates a new notification service adapter
func NewServiceAdapter(client notification.Notifier) *ServiceAdapter {
	return &ServiceAdapter{client: client}
}

// SendAssignmentNotification converts n to the webhook payload and sends it.
func (a *ServiceAdapter) SendAssignmentNotification(ctx context.Context, n service.AssignmentNotification) error {
	metadata := make(map[string]string, len(n.Metadata)+1)
	for k, v := range n.Metadata {
		metadata[k] = v
	}
	metadata["notification_type"] = string(n.Type)
	if n.EmployeeID > 0 {
		metadata["employee_id"] = strconv.Itoa(n.EmployeeID)
	}

	return a.client.SendNotificationWithContext(ctx, notification.Notification{
		Level:           mapNotificationLevel(n.Type),
		Event:           string(n.Type),
		EmployeeID:      n.EmployeeID,
		EmployeeName:    n.EmployeeName,
		ComputerID:      n.ComputerID,
		InventoryNumber: n.InventoryNumber,
		Message:         n.Message,
		Metadata:        metadata,
	})
}

// mapNotificationLevel maps service notification types to client notification levels
func mapNotificationLevel(t service.NotificationType) notification.NotificationLevel {
	switch t {
	case service.NotificationTypeLowRAM, service.NotificationTypeComputerRemoved:
		return notification.LevelWarning
	default:
		return notification.LevelInfo
	}
}
