package attendanceService

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/repository"
)

// CheckoutHook runs after a successful check-out.
type CheckoutHook func(ctx context.Context, userID string) error

type AttendanceService struct {
	Records repository.AttendanceRepository
	Log     *logger.Logger

	mu    sync.RWMutex
	hooks []CheckoutHook

	now   func() time.Time
	newID func() string
}

func NewAttendanceService(records repository.AttendanceRepository, log *logger.Logger) *AttendanceService {
	return &AttendanceService{
		Records: records,
		Log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// OnCheckout registers hook to run after every successful check-out.
func (a *AttendanceService) OnCheckout(hook CheckoutHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, hook)
}

func (a *AttendanceService) HasOpenSession(ctx context.Context, userID string) (bool, error) {
	rec, err := a.Records.FindOpen(ctx, userID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (a *AttendanceService) CheckIn(ctx context.Context, userID string) (models.AttendanceRecord, error) {
	open, err := a.Records.FindOpen(ctx, userID)
	if err != nil {
		a.Log.Error("Failed to read attendance", "error", err, "user_id", userID)
		return models.AttendanceRecord{}, apperrors.Internal("failed to check in", err)
	}
	if open != nil {
		return models.AttendanceRecord{}, apperrors.ErrAlreadyCheckedIn
	}

	rec := models.AttendanceRecord{
		AttendanceID: a.newID(),
		UserID:       userID,
		CheckInTime:  a.now(),
	}
	if err := a.Records.Create(ctx, &rec); err != nil {
		a.Log.Error("Failed to record check-in", "error", err, "user_id", userID)
		return models.AttendanceRecord{}, apperrors.Internal("failed to check in", err)
	}

	a.Log.Info("User checked in", "user_id", userID)
	return rec, nil
}

// CheckOut closes the open session and then runs the checkout hooks. Hook
// failures are logged; the check-out itself stands.
func (a *AttendanceService) CheckOut(ctx context.Context, userID string) (time.Time, error) {
	at := a.now()
	closed, err := a.Records.CloseOpen(ctx, userID, at)
	if err != nil {
		a.Log.Error("Failed to record check-out", "error", err, "user_id", userID)
		return time.Time{}, apperrors.Internal("failed to check out", err)
	}
	if !closed {
		return time.Time{}, apperrors.Precondition("not checked in")
	}

	a.mu.RLock()
	hooks := append([]CheckoutHook(nil), a.hooks...)
	a.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, userID); err != nil {
			a.Log.Error("Checkout hook failed", "error", err, "user_id", userID)
		}
	}

	a.Log.Info("User checked out", "user_id", userID)
	return at, nil
}
