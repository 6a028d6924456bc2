package engine

import (
	"context"
	"crypto/rand"
	"errors"
	mathrand "math/rand/v2"
	"testing"

	"veil/internal/audit"
	"veil/internal/domain"
	"veil/internal/history"
	historymock "veil/internal/history/mock"
	"veil/internal/masking"
	"veil/internal/masking/paillier"
	"veil/internal/policy"
	"veil/internal/scoring"

	"go.uber.org/mock/gomock"

	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	suite.Suite
	key *paillier.PrivateKey
}

func (s *EngineSuite) SetupSuite() {
	key, err := paillier.NewTestKey(rand.Reader, 512)
	s.Require().NoError(err)
	s.key = key
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

type fixture struct {
	service    *Service
	history    *history.InMemoryStore
	auditStore *audit.InMemoryStore
	overrides  *policy.InMemoryOverrideStore
}

func (s *EngineSuite) newFixture(opts ...ServiceOption) *fixture {
	f := &fixture{
		history:    history.NewInMemoryStore(),
		auditStore: audit.NewInMemoryStore(),
		overrides:  policy.NewInMemoryOverrideStore(),
	}
	f.service = s.newService(f.history, f.auditStore, f.overrides, opts...)
	return f
}

func (s *EngineSuite) newService(historyStore history.Store, auditStore *audit.InMemoryStore, overrides policy.OverrideStore, opts ...ServiceOption) *Service {
	model, err := scoring.NewModel(scoring.DefaultWeights())
	s.Require().NoError(err)

	cfg := policy.Default()
	registry := masking.NewRegistry(
		masking.NewEncoder(&s.key.PublicKey),
		masking.NewGeneralizer(masking.DefaultGeneralizeRules()),
		masking.NewPerturber(masking.DefaultPerturbConfig(cfg.EpsilonFor), mathrand.NewPCG(1, 2)),
	)

	opts = append([]ServiceOption{WithDecrypter(masking.NewDecrypter(s.key))}, opts...)
	service, err := NewService(
		model,
		scoring.DefaultFactorParams(),
		cfg,
		overrides,
		registry,
		historyStore,
		audit.NewPublisher(auditStore),
		opts...,
	)
	s.Require().NoError(err)
	return service
}

func request(role domain.Role, purpose domain.Purpose, attr domain.Attribute) Request {
	return Request{
		Requester: domain.Requester{ID: "req-1", Role: role},
		Context:   domain.AccessContext{Purpose: purpose},
		Attribute: attr,
	}
}

func (s *EngineSuite) TestDecideLevels() {
	ctx := context.Background()

	s.Run("clean admin on low-sensitivity data reveals", func() {
		f := s.newFixture()
		attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "dana@example.org")

		decision, err := f.service.Decide(ctx, request(domain.RoleAdmin, domain.PurposeCompliance, attr))

		s.Require().NoError(err)
		s.Equal(domain.LevelReveal, decision.Level)
		s.Equal(domain.StatusCompleted, decision.Status)
		s.Equal("dana@example.org", decision.Masked.Text)
		s.False(decision.Violation)
	})

	s.Run("steward on numeric medium-sensitivity data encodes", func() {
		f := s.newFixture()
		attr := domain.NumericAttribute(domain.EntitySalary, domain.SensitivityMedium, 52340.75)

		decision, err := f.service.Decide(ctx, request(domain.RoleSteward, domain.PurposeCompliance, attr))

		s.Require().NoError(err)
		s.Equal(domain.LevelEncode, decision.Level)
		s.NotEmpty(decision.Masked.Ciphertext)
		s.Equal(s.key.Fingerprint(), decision.Masked.KeyID)
	})

	s.Run("analyst on critical text generalizes", func() {
		f := s.newFixture()
		attr := domain.TextAttribute(domain.EntityIdentityNumber, domain.SensitivityCritical, "199012233456")

		decision, err := f.service.Decide(ctx, request(domain.RoleAnalyst, domain.PurposeCompliance, attr))

		s.Require().NoError(err)
		s.Equal(domain.LevelBucket, decision.Level)
		s.Equal("19**********", decision.Masked.Text)
	})

	s.Run("external requester with unlisted purpose on age perturbs", func() {
		f := s.newFixture()
		attr := domain.NumericAttribute(domain.EntityAge, domain.SensitivityMedium, 64)

		decision, err := f.service.Decide(ctx, request(domain.RoleExternal, domain.PurposeMarketing, attr))

		s.Require().NoError(err)
		s.Equal(domain.LevelPerturb, decision.Level)
		s.NotEqual(64.0, decision.Masked.Number)
		s.True(decision.Violation)
	})

	s.Run("labeler with unlisted purpose on critical data suppresses", func() {
		f := s.newFixture()
		attr := domain.TextAttribute(domain.EntityIdentityNumber, domain.SensitivityCritical, "199012233456")

		decision, err := f.service.Decide(ctx, request(domain.RoleLabeler, domain.PurposeMarketing, attr))

		s.Require().NoError(err)
		s.Equal(domain.LevelSuppress, decision.Level)
		s.Equal("[IDENTITY_NUMBER]", decision.Masked.Text)
	})
}

func (s *EngineSuite) TestDecideAppendsExactlyOneRecord() {
	ctx := context.Background()

	cases := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{
			"completed decision",
			request(domain.RoleAdmin, domain.PurposeCompliance, domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "a@b.se")),
			false,
		},
		{
			"unknown role",
			request(domain.Role("archivist"), domain.PurposeCompliance, domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "a@b.se")),
			true,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			f := s.newFixture()

			_, err := f.service.Decide(ctx, tc.request)
			if tc.wantErr {
				s.Error(err)
			} else {
				s.NoError(err)
			}

			records, listErr := f.history.ListByRequester(ctx, tc.request.Requester.ID)
			s.Require().NoError(listErr)
			s.Len(records, 1)

			events, listErr := f.auditStore.ListByRequester(ctx, tc.request.Requester.ID)
			s.Require().NoError(listErr)
			s.Len(events, 1)
		})
	}
}

func (s *EngineSuite) TestDecideUnknownRole() {
	f := s.newFixture()
	attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "a@b.se")

	decision, err := f.service.Decide(context.Background(), request(domain.Role("archivist"), domain.PurposeCompliance, attr))

	var unknownRole *domain.UnknownRoleError
	s.Require().ErrorAs(err, &unknownRole)
	s.Nil(decision)

	records, listErr := f.history.ListByRequester(context.Background(), "req-1")
	s.Require().NoError(listErr)
	s.Require().Len(records, 1)
	s.Equal(domain.StatusUnknownRole, records[0].Status)
	s.Equal(domain.LevelSuppress, records[0].Level)
	s.True(records[0].Violation)
}

func (s *EngineSuite) TestDecideHistoryUnavailable() {
	ctrl := gomock.NewController(s.T())
	store := historymock.NewMockStore(ctrl)

	store.EXPECT().
		QueryWindow(gomock.Any(), "req-1", domain.EntityEmail, gomock.Any()).
		Return(history.Stats{}, errors.New("connection refused"))
	var appended history.Record
	store.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record history.Record) error {
			appended = record
			return nil
		})

	auditStore := audit.NewInMemoryStore()
	service := s.newService(store, auditStore, policy.NewInMemoryOverrideStore())
	attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "a@b.se")

	decision, err := service.Decide(context.Background(), request(domain.RoleAdmin, domain.PurposeCompliance, attr))

	// An unreadable history is a decision outcome, not a caller error.
	s.Require().NoError(err)
	s.Equal(domain.LevelSuppress, decision.Level)
	s.Equal(domain.StatusHistoryUnavailable, decision.Status)
	s.Equal("[EMAIL]", decision.Masked.Text)

	s.Equal(domain.StatusHistoryUnavailable, appended.Status)

	events, listErr := auditStore.ListRecent(context.Background(), 10)
	s.Require().NoError(listErr)
	s.Require().Len(events, 1)
	s.Equal(domain.StatusHistoryUnavailable, events[0].Status)
}

func (s *EngineSuite) TestDecideAppendFailureFailsTheDecision() {
	ctrl := gomock.NewController(s.T())
	store := historymock.NewMockStore(ctrl)

	store.EXPECT().
		QueryWindow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(history.Stats{}, nil)
	store.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		Return(errors.New("disk full"))

	service := s.newService(store, audit.NewInMemoryStore(), policy.NewInMemoryOverrideStore())
	attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "a@b.se")

	decision, err := service.Decide(context.Background(), request(domain.RoleAdmin, domain.PurposeCompliance, attr))

	s.Require().ErrorIs(err, domain.ErrHistoryUnavailable)
	s.Nil(decision)
}

func (s *EngineSuite) TestDecideTypeMismatchFailsClosed() {
	f := s.newFixture()
	// Force the encode level onto a textual attribute via an override.
	s.Require().NoError(f.overrides.Upsert(context.Background(), policy.Override{
		EntityType: domain.EntityName,
		Role:       domain.RoleAdmin,
		Level:      domain.LevelEncode,
	}))
	attr := domain.TextAttribute(domain.EntityName, domain.SensitivityLow, "Dana")

	decision, err := f.service.Decide(context.Background(), request(domain.RoleAdmin, domain.PurposeCompliance, attr))

	var mismatch *domain.TypeMismatchError
	s.Require().ErrorAs(err, &mismatch)
	s.Nil(decision)

	records, listErr := f.history.ListByRequester(context.Background(), "req-1")
	s.Require().NoError(listErr)
	s.Require().Len(records, 1)
	s.Equal(domain.StatusTypeMismatch, records[0].Status)
	s.Equal(domain.LevelSuppress, records[0].Level)
	s.True(records[0].Violation)
}

func (s *EngineSuite) TestDecideHonorsOverrides() {
	f := s.newFixture()
	s.Require().NoError(f.overrides.Upsert(context.Background(), policy.Override{
		EntityType: "*",
		Role:       domain.RoleAdmin,
		Level:      domain.LevelSuppress,
	}))
	attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "dana@example.org")

	decision, err := f.service.Decide(context.Background(), request(domain.RoleAdmin, domain.PurposeCompliance, attr))

	s.Require().NoError(err)
	s.Equal(domain.LevelSuppress, decision.Level)
	s.Equal("[EMAIL]", decision.Masked.Text)
}

func (s *EngineSuite) TestDecideFrequencyErodesTrust() {
	f := s.newFixture()
	ctx := context.Background()
	attr := domain.NumericAttribute(domain.EntitySalary, domain.SensitivityMedium, 50000)

	first, err := f.service.Decide(ctx, request(domain.RoleSteward, domain.PurposeCompliance, attr))
	s.Require().NoError(err)

	var last *domain.Decision
	for range 30 {
		last, err = f.service.Decide(ctx, request(domain.RoleSteward, domain.PurposeCompliance, attr))
		s.Require().NoError(err)
	}

	s.Less(last.Score, first.Score)
	s.GreaterOrEqual(last.Level, first.Level)
}

func (s *EngineSuite) TestAuditOutlivesCancellation() {
	ctrl := gomock.NewController(s.T())
	store := historymock.NewMockStore(ctrl)

	store.EXPECT().
		QueryWindow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(history.Stats{}, nil)
	store.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ history.Record) error {
			// The caller's cancellation must not reach the trail writes.
			s.NoError(ctx.Err())
			return nil
		})

	service := s.newService(store, audit.NewInMemoryStore(), policy.NewInMemoryOverrideStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "a@b.se")
	_, err := service.Decide(ctx, request(domain.RoleAdmin, domain.PurposeCompliance, attr))
	s.NoError(err)
}

func (s *EngineSuite) TestExplainWritesNoHistory() {
	f := s.newFixture()
	attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "")

	explanation, level, err := f.service.Explain(context.Background(), request(domain.RoleAdmin, domain.PurposeCompliance, attr))

	s.Require().NoError(err)
	s.Equal(domain.LevelReveal, level)
	s.Greater(explanation.Score, 0.0)
	s.InDelta(scoring.DefaultWeights().Role, explanation.Contributions.Role, 1e-9)

	records, listErr := f.history.ListByRequester(context.Background(), "req-1")
	s.Require().NoError(listErr)
	s.Empty(records)
}
