package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/config"
	"github.com/lyzr/entityeditor/common/logger"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/relationships"
	"github.com/lyzr/entityeditor/common/session"
	"github.com/lyzr/entityeditor/common/submission"
	"github.com/lyzr/entityeditor/common/telemetry"
	"github.com/lyzr/entityeditor/common/validation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPoster struct {
	err error
}

func (p *stubPoster) Submit(ctx context.Context, payload any) (*clients.SubmitResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &clients.SubmitResult{BBID: "bbid-1"}, nil
}

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "error", "json")
}

func testDeps(t *testing.T, poster submission.Poster) session.Deps {
	t.Helper()
	log := quietLogger()

	c, err := catalog.Default()
	require.NoError(t, err)
	idents, err := c.Identifiers()
	require.NoError(t, err)
	validator, err := validation.NewValidator(validation.DefaultRules(), idents)
	require.NoError(t, err)
	roles, err := submission.RoleIDsFromCatalog(c)
	require.NoError(t, err)

	return session.Deps{
		Identifiers:    idents,
		Resolver:       relationships.NewResolver(c.RelationshipTypes, log),
		Validator:      validator,
		Roles:          roles,
		Poster:         poster,
		DebounceWindow: time.Hour,
		Logger:         log,
	}
}

func newService(t *testing.T, ttl time.Duration, poster submission.Poster) (*SessionService, *telemetry.Telemetry) {
	t.Helper()
	tel := telemetry.New(config.TelemetryConfig{}, quietLogger())
	svc := NewSessionService(testDeps(t, poster), ttl, tel, quietLogger())
	t.Cleanup(svc.CloseAll)
	return svc, tel
}

func TestSessionService_Lifecycle(t *testing.T) {
	svc, tel := newService(t, time.Hour, nil)

	sess, err := svc.Create(session.Options{EntityType: models.EntityAuthor})
	require.NoError(t, err)

	got, err := svc.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Metrics().SessionsActive))

	res, err := svc.Dispatch(sess.ID(), session.Command{Op: session.OpAliasAdd})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Metrics().Commands.WithLabelValues(session.OpAliasAdd, telemetry.OutcomeOK)))

	require.NoError(t, svc.Close(sess.ID()))
	_, err = svc.Get(sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(sess.ID()), ErrSessionNotFound)
	assert.Equal(t, 0.0, testutil.ToFloat64(tel.Metrics().SessionsActive))
}

func TestSessionService_CreateRejectsBadType(t *testing.T) {
	svc, _ := newService(t, time.Hour, nil)
	_, err := svc.Create(session.Options{EntityType: "Magazine"})
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Len())
}

func TestSessionService_EvictIdle(t *testing.T) {
	svc, tel := newService(t, time.Minute, nil)

	stale, err := svc.Create(session.Options{EntityType: models.EntityWork})
	require.NoError(t, err)
	u, err := svc.CreateUnified(session.Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, svc.Evict(), "nothing is idle yet")

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 2, svc.Evict())
	assert.Equal(t, 0, svc.Len())

	_, err = svc.Get(stale.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.GetUnified(u.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = stale.AddAlias()
	assert.ErrorIs(t, err, session.ErrClosed)
	assert.Equal(t, 2.0, testutil.ToFloat64(tel.Metrics().SessionsEvicted))
}

func TestSessionService_NoTTLNeverEvicts(t *testing.T) {
	svc, _ := newService(t, 0, nil)
	_, err := svc.Create(session.Options{EntityType: models.EntityWork})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.Equal(t, 0, svc.Evict())
}

func TestSessionService_RunClosesOnCancel(t *testing.T) {
	svc, _ := newService(t, time.Hour, nil)
	_, err := svc.Create(session.Options{EntityType: models.EntityWork})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
	assert.Equal(t, 0, svc.Len())
}

func TestSessionService_Submit(t *testing.T) {
	svc, tel := newService(t, time.Hour, &stubPoster{})

	sess, err := svc.Create(session.Options{EntityType: models.EntityAuthor})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), sess.ID())
	assert.ErrorIs(t, err, session.ErrBlocked)
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Metrics().Submissions.WithLabelValues(telemetry.OutcomeBlocked)))

	require.NoError(t, sess.SetName(session.NameFieldName, "Jules Verne"))
	require.NoError(t, sess.SetName(session.NameFieldSortName, "Verne, Jules"))
	result, err := svc.Submit(context.Background(), sess.ID())
	require.NoError(t, err)
	assert.Equal(t, "bbid-1", result.BBID)
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Metrics().Submissions.WithLabelValues(telemetry.OutcomeOK)))
}

func TestSessionService_SubmitRejected(t *testing.T) {
	svc, tel := newService(t, time.Hour, &stubPoster{err: &clients.ServerError{Status: 400, Message: "name taken"}})

	sess, err := svc.Create(session.Options{
		EntityType: models.EntityAuthor,
		Name:       models.Alias{Name: "Jules Verne", SortName: "Verne, Jules"},
	})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), sess.ID())
	assert.Error(t, err)
	assert.Equal(t, "name taken", sess.SubmitError())
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Metrics().Submissions.WithLabelValues(telemetry.OutcomeRejected)))
}

func TestSessionService_DispatchUnified(t *testing.T) {
	svc, _ := newService(t, time.Hour, nil)

	u, err := svc.CreateUnified(session.Options{Name: models.Alias{Name: "Edition", SortName: "Edition"}})
	require.NoError(t, err)
	key, _, err := u.AddWork(session.Options{})
	require.NoError(t, err)

	res, err := svc.DispatchUnified(u.ID(), key, session.Command{Op: session.OpAliasAdd})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	_, err = svc.DispatchUnified(u.ID(), "w7", session.Command{Op: session.OpAliasAdd})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, svc.CloseUnified(u.ID()))
	assert.ErrorIs(t, svc.CloseUnified(u.ID()), ErrSessionNotFound)
}
