package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"presensi-backend/internal/geofence"
	"presensi-backend/internal/models"
	"presensi-backend/internal/repository"
)

const dailyViewTTL = 5 * time.Minute

// AttendanceService owns clock-in/out mutations and the cached daily
// attendance view. The geofence monitor, the manual clock endpoints and the
// auto-clockout sweeper all go through it; the underlying store is
// idempotent, so duplicate calls are safe. It implements geofence.Clocker.
type AttendanceService struct {
	repo  *repository.AttendanceRepo
	users *repository.UserRepo
	redis *redis.Client
	loc   *time.Location
}

func NewAttendanceService(repo *repository.AttendanceRepo, users *repository.UserRepo, redisClient *redis.Client, loc *time.Location) *AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{repo: repo, users: users, redis: redisClient, loc: loc}
}

func (s *AttendanceService) ClockIn(ctx context.Context, userID int64, at time.Time) (bool, error) {
	return s.clockIn(ctx, userID, at, models.ClockSourceGeofence)
}

func (s *AttendanceService) ClockOut(ctx context.Context, userID int64, at time.Time) (bool, error) {
	return s.clockOut(ctx, userID, at, models.ClockSourceGeofence)
}

func (s *AttendanceService) ManualClockIn(ctx context.Context, userID int64, at time.Time) (bool, error) {
	return s.clockIn(ctx, userID, at, models.ClockSourceManual)
}

func (s *AttendanceService) ManualClockOut(ctx context.Context, userID int64, at time.Time) (bool, error) {
	return s.clockOut(ctx, userID, at, models.ClockSourceManual)
}

func (s *AttendanceService) clockIn(ctx context.Context, userID int64, at time.Time, source string) (bool, error) {
	// Mutations fail closed on a bad identity before any store call.
	if userID <= 0 {
		return false, geofence.ErrInvalidIdentity
	}

	created, err := s.repo.ClockIn(ctx, userID, s.workDate(at), at.UTC(), source)
	if err != nil {
		return false, err
	}
	if created {
		s.invalidateDailyView(ctx, userID, at)
	}
	return created, nil
}

func (s *AttendanceService) clockOut(ctx context.Context, userID int64, at time.Time, source string) (bool, error) {
	if userID <= 0 {
		return false, geofence.ErrInvalidIdentity
	}

	closed, err := s.repo.ClockOut(ctx, userID, s.workDate(at), at.UTC(), source)
	if err != nil {
		return false, err
	}
	if closed {
		s.invalidateDailyView(ctx, userID, at)
	}
	return closed, nil
}

// CloseOpenSessions force-closes every open session for the given day. The
// auto-clockout sweeper calls it during the end-of-day window.
func (s *AttendanceService) CloseOpenSessions(ctx context.Context, at time.Time) (int64, error) {
	return s.repo.CloseOpen(ctx, s.workDate(at), at.UTC(), models.ClockSourceAuto)
}

// TodayView returns the user's attendance record for the current day,
// served from the Redis cache when possible. Clock mutations invalidate the
// cache, so a fresh punch is visible on the next fetch.
func (s *AttendanceService) TodayView(ctx context.Context, userID int64) (*models.Attendance, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)
	key := dailyViewKey(user.Username, now)

	if raw, err := s.redis.Get(ctx, key).Result(); err == nil {
		var cached models.Attendance
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return &cached, nil
		}
		// Corrupt cache entry: fall through to the store.
		s.redis.Del(ctx, key)
	}

	record, err := s.repo.GetByDate(ctx, userID, s.workDate(now))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	if raw, err := json.Marshal(record); err == nil {
		if err := s.redis.Set(ctx, key, raw, dailyViewTTL).Err(); err != nil {
			log.Printf("attendance: failed to cache daily view for %s: %v", user.Username, err)
		}
	}
	return record, nil
}

func (s *AttendanceService) List(ctx context.Context, userID int64, q models.AttendanceListQuery) ([]models.Attendance, error) {
	return s.repo.List(ctx, userID, q)
}

// invalidateDailyView drops the cached daily view after a successful
// mutation. The cache key is the user's canonical name plus the current
// local date, resolved once here and reused. A refresh failure is only
// logged: the cache has a TTL and reconciles on its own.
func (s *AttendanceService) invalidateDailyView(ctx context.Context, userID int64, at time.Time) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("attendance: failed to resolve user %d for view refresh: %v", userID, err)
		return
	}
	key := dailyViewKey(user.Username, at.In(s.loc))
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		log.Printf("attendance: failed to invalidate daily view %s: %v", key, err)
	}
}

func (s *AttendanceService) workDate(at time.Time) string {
	return at.In(s.loc).Format(models.DateLayout)
}

func dailyViewKey(username string, day time.Time) string {
	return fmt.Sprintf("attendance:view:%s:%s", username, day.Format(models.DateLayout))
}
