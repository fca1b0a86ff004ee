package service

import (
	"context"
	"fmt"

	"computer-inventory/internal/model"

	"go.uber.org/zap"
)

// NotificationService interface for sending notifications
type NotificationService interface {
	SendAssignmentNotification(ctx context.Context, notification AssignmentNotification) error
}

// AssignmentNotification describes a change to who holds which computer.
type AssignmentNotification struct {
	Type            NotificationType
	EmployeeID      int
	EmployeeName    string
	ComputerID      int
	InventoryNumber string
	Message         string
	Metadata        map[string]string
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeComputerAssigned   NotificationType = "computer_assigned"
	NotificationTypeComputerUnassigned NotificationType = "computer_unassigned"
	NotificationTypeComputerReleased   NotificationType = "computer_released"
	NotificationTypeComputerRemoved    NotificationType = "computer_removed"
	NotificationTypeLowRAM             NotificationType = "low_ram"
)

// notify delivers n in the background. Delivery failures are logged.
func (s *InventoryService) notify(ctx context.Context, n AssignmentNotification) {
	ctx = context.WithoutCancel(ctx)
	s.pendingSends.Add(1)
	go func() {
		defer s.pendingSends.Done()
		if err := s.notifier.SendAssignmentNotification(ctx, n); err != nil {
			s.logger.Warn("Failed to send notification",
				zap.String("type", string(n.Type)),
				zap.Int("computer_id", n.ComputerID),
				zap.Error(err))
		}
	}()
}

func (s *InventoryService) notifyUnassigned(ctx context.Context, e model.Employee, computerID int) {
	c, _ := s.store.Computer(computerID)
	s.notify(ctx, AssignmentNotification{
		Type:            NotificationTypeComputerUnassigned,
		EmployeeID:      e.ID,
		EmployeeName:    e.LastName,
		ComputerID:      computerID,
		InventoryNumber: c.InventoryNumber,
		Message:         fmt.Sprintf("Computer %s taken from %s", c.InventoryNumber, e.LastName),
	})
}

func (s *InventoryService) checkLowRAM(ctx context.Context, c model.Computer) {
	if s.lowRAMBelow <= 0 || c.RAMSize >= s.lowRAMBelow {
		return
	}
	s.notify(ctx, AssignmentNotification{
		Type:            NotificationTypeLowRAM,
		ComputerID:      c.ID,
		InventoryNumber: c.InventoryNumber,
		Message:         fmt.Sprintf("Computer %s has %d GB of RAM (threshold: %d)", c.InventoryNumber, c.RAMSize, s.lowRAMBelow),
		Metadata: map[string]string{
			"threshold": fmt.Sprintf("%d", s.lowRAMBelow),
			"ram_size":  fmt.Sprintf("%d", c.RAMSize),
		},
	})
}

type nopNotifier struct{}

func (nopNotifier) SendAssignmentNotification(context.Context, AssignmentNotification) error {
	return nil
}
