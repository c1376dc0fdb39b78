package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"rental-portal/internal/apperr"
	"rental-portal/internal/cascade"
	"rental-portal/internal/deletionlog"
	"rental-portal/internal/metrics"
	"rental-portal/internal/models"
	"rental-portal/internal/testutil"
	"rental-portal/internal/token"
)

type failingEraser struct {
	failID uint
	next   Eraser
}

func (f *failingEraser) PrivacyDeleteUserProfile(ctx context.Context, p *models.UserProfile, req cascade.Request) (*cascade.Result, error) {
	if p.ID == f.failID {
		return nil, apperr.Storage("cascade.privacy_delete", errors.New("connection reset"))
	}
	return f.next.PrivacyDeleteUserProfile(ctx, p, req)
}

type SweepSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	fx      *testutil.Fixtures
	orch    *cascade.Orchestrator
	metrics *metrics.Metrics
	svc     *Service
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.fx = testutil.NewFixtures(s.T(), s.db)
	tokens, err := token.New("sweep-secret")
	s.Require().NoError(err)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.orch = cascade.New(s.db, deletionlog.NewStore(s.db), tokens, cascade.WithMetrics(s.metrics))
	s.svc = NewService(s.db, s.orch, s.metrics)
}

// requested creates a profile whose erasure was requested daysAgo.
func (s *SweepSuite) requested(name, phone string, daysAgo int) *models.UserProfile {
	p := s.fx.UserProfile(s.fx.User(name), phone)
	at := time.Now().AddDate(0, 0, -daysAgo)
	s.Require().NoError(s.db.Model(p).Update("erasure_requested_at", at).Error)
	return p
}

func (s *SweepSuite) anonymized(id uint) bool {
	var p models.UserProfile
	s.Require().NoError(s.db.First(&p, id).Error)
	return p.IsAnonymized()
}

func (s *SweepSuite) TestErasesOnlyDueProfiles() {
	due := s.requested("due", "+1 555 010 0001", 45)
	recent := s.requested("recent", "+1 555 010 0002", 3)
	untouched := s.fx.UserProfile(s.fx.User("none"), "+1 555 010 0003")

	res, err := s.svc.Run(s.ctx, DefaultConfig())
	s.Require().NoError(err)

	s.Equal(1, res.TargetCount)
	s.Equal(1, res.ErasedCount)
	s.Equal([]uint{due.ID}, res.ErasedIDs)
	s.True(s.anonymized(due.ID))
	s.False(s.anonymized(recent.ID))
	s.False(s.anonymized(untouched.ID))

	s.Equal(int64(1), s.fx.Count(&models.DeletionLog{}, "deletion_type = ? AND deleted_object_id = ?", models.DeletionTypePrivacyDelete, due.ID))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.SweepErasures.WithLabelValues("erased")))

	s.Run("anonymized profiles are no longer due", func() {
		res, err := s.svc.Run(s.ctx, DefaultConfig())
		s.Require().NoError(err)
		s.Zero(res.TargetCount)
	})
}

func (s *SweepSuite) TestDryRun() {
	due := s.requested("due", "+1 555 010 0001", 45)

	cfg := DefaultConfig()
	cfg.DryRun = true
	res, err := s.svc.Run(s.ctx, cfg)
	s.Require().NoError(err)

	s.True(res.DryRun)
	s.Equal(1, res.ErasedCount)
	s.False(s.anonymized(due.ID))
	s.Zero(s.fx.Count(&models.DeletionLog{}, ""))
}

func (s *SweepSuite) TestSafetyLimit() {
	a := s.requested("a", "+1 555 010 0001", 45)
	s.requested("b", "+1 555 010 0002", 45)

	cfg := DefaultConfig()
	cfg.MaxErasures = 1
	_, err := s.svc.Run(s.ctx, cfg)
	s.True(apperr.HasCode(err, apperr.CodeValidation))
	s.False(s.anonymized(a.ID))
}

func (s *SweepSuite) TestFailureDoesNotStopSweep() {
	bad := s.requested("bad", "+1 555 010 0001", 50)
	good := s.requested("good", "+1 555 010 0002", 40)

	svc := NewService(s.db, &failingEraser{failID: bad.ID, next: s.orch}, s.metrics)
	res, err := svc.Run(s.ctx, DefaultConfig())
	s.Require().NoError(err)

	s.Equal(2, res.TargetCount)
	s.Equal(1, res.ErrorCount)
	s.Equal(1, res.ErasedCount)
	s.Len(res.Errors, 1)
	s.False(s.anonymized(bad.ID))
	s.True(s.anonymized(good.ID))
}

func (s *SweepSuite) TestActorIsRecorded() {
	admin := s.fx.User("system")
	due := s.requested("due", "+1 555 010 0001", 45)

	cfg := DefaultConfig()
	cfg.Actor = &admin.ID
	_, err := s.svc.Run(s.ctx, cfg)
	s.Require().NoError(err)

	s.Equal(int64(1), s.fx.Count(&models.DeletionLog{}, "deleted_by_id = ? AND deleted_object_id = ?", admin.ID, due.ID))
}
