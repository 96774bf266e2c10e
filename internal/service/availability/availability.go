package availabilityService

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/metrics"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/repository"
	"github.com/nikhil/staffhub/internal/validation"
)

const DefaultTTL = 12 * time.Hour

type Store interface {
	Put(ctx context.Context, rec models.AvailabilityRecord, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*models.AvailabilityRecord, error)
	List(ctx context.Context) ([]models.AvailabilityRecord, error)
	Delete(ctx context.Context, userID string) error
}

// AttendanceChecker reports whether a user has an open attendance session.
type AttendanceChecker interface {
	HasOpenSession(ctx context.Context, userID string) (bool, error)
}

type SetAvailabilityRequest struct {
	Status models.AvailabilityStatus `json:"status" validate:"required,oneof=AVAILABLE UNAVAILABLE"`
	Reason string                    `json:"reason" validate:"max=500"`
}

type AvailabilityService struct {
	Store      Store
	Attendance AttendanceChecker
	Users      repository.UserRepository
	Metrics    metrics.Recorder
	Log        *logger.Logger
	TTL        time.Duration

	now func() time.Time
}

func NewAvailabilityService(store Store, attendance AttendanceChecker, users repository.UserRepository, ttl time.Duration, rec metrics.Recorder, log *logger.Logger) *AvailabilityService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AvailabilityService{
		Store:      store,
		Attendance: attendance,
		Users:      users,
		Metrics:    rec,
		Log:        log,
		TTL:        ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetAvailability upserts the caller's record. It is only allowed while the
// caller is checked in.
func (s *AvailabilityService) SetAvailability(ctx context.Context, userID string, req SetAvailabilityRequest) (models.AvailabilityRecord, error) {
	open, err := s.Attendance.HasOpenSession(ctx, userID)
	if err != nil {
		s.Log.Error("Failed to check attendance", "error", err, "user_id", userID)
		return models.AvailabilityRecord{}, apperrors.Internal("failed to check attendance", err)
	}
	if !open {
		return models.AvailabilityRecord{}, apperrors.ErrNotCheckedIn
	}
	if err := validation.Struct(req); err != nil {
		return models.AvailabilityRecord{}, err
	}

	now := s.now()
	rec := models.AvailabilityRecord{
		UserID:        userID,
		Status:        req.Status,
		Reason:        strings.TrimSpace(req.Reason),
		LastUpdatedAt: now,
		ExpiresAt:     now.Add(s.TTL),
	}
	if err := s.Store.Put(ctx, rec, s.TTL); err != nil {
		s.Log.Error("Failed to store availability", "error", err, "user_id", userID)
		return models.AvailabilityRecord{}, apperrors.Internal("failed to set availability", err)
	}

	// A check-out may have cleared the store between the first check and the
	// Put. Check again so the record cannot outlive the session.
	if err := s.confirmSession(ctx, userID); err != nil {
		if delErr := s.Store.Delete(ctx, userID); delErr != nil {
			s.Log.Error("Failed to roll back availability", "error", delErr, "user_id", userID)
		}
		return models.AvailabilityRecord{}, err
	}

	s.Metrics.RecordAvailabilityUpdate(string(rec.Status))
	s.Log.Info("Availability updated", "user_id", userID, "status", rec.Status)
	return rec, nil
}

func (s *AvailabilityService) confirmSession(ctx context.Context, userID string) error {
	open, err := s.Attendance.HasOpenSession(ctx, userID)
	if err != nil {
		s.Log.Error("Failed to check attendance", "error", err, "user_id", userID)
		return apperrors.Internal("failed to check attendance", err)
	}
	if !open {
		s.Log.Warn("Session closed while setting availability", "user_id", userID)
		return apperrors.ErrNotCheckedIn
	}
	return nil
}

// GetAvailability returns the live record, or a bare UNAVAILABLE record when
// there is none or it has expired.
func (s *AvailabilityService) GetAvailability(ctx context.Context, userID string) (models.AvailabilityRecord, error) {
	rec, err := s.Store.Get(ctx, userID)
	if err != nil {
		s.Log.Error("Failed to read availability", "error", err, "user_id", userID)
		return models.AvailabilityRecord{}, apperrors.Internal("failed to read availability", err)
	}
	if rec == nil || rec.Expired(s.now()) {
		return models.UnavailableRecord(userID), nil
	}
	return *rec, nil
}

// ListTeamAvailability returns every live record joined with its user,
// most recently updated first.
func (s *AvailabilityService) ListTeamAvailability(ctx context.Context) ([]models.TeamAvailability, error) {
	records, err := s.Store.List(ctx)
	if err != nil {
		s.Log.Error("Failed to list availability", "error", err)
		return nil, apperrors.Internal("failed to list availability", err)
	}

	now := s.now()
	live := make([]models.AvailabilityRecord, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Expired(now) {
			continue
		}
		live = append(live, rec)
		ids = append(ids, rec.UserID)
	}

	users, err := s.Users.FindByIDs(ctx, ids)
	if err != nil {
		s.Log.Error("Failed to load users for availability", "error", err)
		return nil, apperrors.Internal("failed to list availability", err)
	}

	out := make([]models.TeamAvailability, 0, len(live))
	for _, rec := range live {
		summary := models.UserSummary{UserID: rec.UserID}
		if u, ok := users[rec.UserID]; ok {
			summary = u.Summary()
		}
		out = append(out, models.TeamAvailability{AvailabilityRecord: rec, User: summary})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdatedAt.After(out[j].LastUpdatedAt)
	})
	return out, nil
}

// ClearOnCheckout removes the user's record. It is registered as an
// attendance checkout hook.
func (s *AvailabilityService) ClearOnCheckout(ctx context.Context, userID string) error {
	if err := s.Store.Delete(ctx, userID); err != nil {
		s.Log.Error("Failed to clear availability", "error", err, "user_id", userID)
		return apperrors.Internal("failed to clear availability", err)
	}
	s.Metrics.RecordAvailabilityCleared("checkout")
	s.Log.Debug("Availability cleared on checkout", "user_id", userID)
	return nil
}
