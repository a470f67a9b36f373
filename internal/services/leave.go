package services

import (
	"context"
	"time"

	"presensi-backend/internal/models"
	"presensi-backend/internal/repository"
)

type LeaveService struct {
	repo *repository.LeaveRepo
}

func NewLeaveService(repo *repository.LeaveRepo) *LeaveService {
	return &LeaveService{repo: repo}
}

var leaveTypes = map[string]bool{
	models.LeaveTypeAnnual:         true,
	models.LeaveTypeSick:           true,
	models.LeaveTypeAdministrative: true,
}

func (s *LeaveService) Create(ctx context.Context, userID int64, req models.CreateLeaveRequest) (*models.LeaveRequest, error) {
	fieldErrors := make(map[string]string)

	if !leaveTypes[req.Type] {
		fieldErrors["type"] = "Type must be one of: annual, sick, administrative"
	}
	start, startErr := time.Parse(models.DateLayout, req.StartDate)
	if startErr != nil {
		fieldErrors["start_date"] = "Start date must be YYYY-MM-DD"
	}
	end, endErr := time.Parse(models.DateLayout, req.EndDate)
	if endErr != nil {
		fieldErrors["end_date"] = "End date must be YYYY-MM-DD"
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		fieldErrors["end_date"] = "End date must not be before start date"
	}
	if req.Reason == "" {
		fieldErrors["reason"] = "Reason is required"
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	lr := &models.LeaveRequest{
		UserID:    userID,
		Type:      req.Type,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	}
	if err := s.repo.Create(ctx, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

func (s *LeaveService) List(ctx context.Context, userID int64, limit, offset int) ([]models.LeaveRequest, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
