package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sittichok/user-service/internal/domain/entity"
	repo "github.com/sittichok/user-service/internal/domain/repository"
)

// Stage is a step of the registration flow. Stages only move forward.
type Stage string

const (
	StageStart             Stage = "start"
	StageUniquenessChecked Stage = "uniqueness_checked"
	StagePersisted         Stage = "persisted"
	StageTopologyEnsured   Stage = "topology_ensured"
	StagePublished         Stage = "published"
	StageResponded         Stage = "responded"
)

// RegisterError is the Failed(reason) outcome: the stage that was running and
// the cause. Unwrap yields the cause so errors.Is works on the sentinels.
type RegisterError struct {
	Stage Stage
	Err   error
}

func (e *RegisterError) Error() string { return fmt.Sprintf("register at %s: %v", e.Stage, e.Err) }
func (e *RegisterError) Unwrap() error { return e.Err }

type RegisterInput struct {
	Fullname string
	Email    string
	Password string
}

// RegisterResult describes a successful registration. EventErr is set when
// the user was stored but the UserCreated event did not reach the broker;
// EventQueued tells whether it was handed to the outbox instead.
type RegisterResult struct {
	ID          int64
	Fullname    string
	Stage       Stage
	EventErr    error
	EventQueued bool
}

// Register runs uniqueness check, hash and persist, topology ensure, publish.
// Failures before persistence abort the request. Once the record is stored it
// is kept: broker failures are logged, queued in the outbox when available,
// and reported through RegisterResult.EventErr rather than as an error.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	stage := StageStart
	log := s.Logger.WithField("email", in.Email)

	// Start -> UniquenessChecked
	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, &RegisterError{Stage: stage, Err: ErrDuplicateEmail}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, &RegisterError{Stage: stage, Err: fmt.Errorf("%w: find by email: %v", ErrStore, err)}
	}
	stage = StageUniquenessChecked

	// UniquenessChecked -> Persisted
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, &RegisterError{Stage: stage, Err: fmt.Errorf("hash password: %w", err)}
	}
	u, err := s.Repo.Create(ctx, in.Fullname, in.Email, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			// lost a race against a concurrent registration
			return nil, &RegisterError{Stage: stage, Err: ErrDuplicateEmail}
		}
		return nil, &RegisterError{Stage: stage, Err: fmt.Errorf("%w: create: %v", ErrStore, err)}
	}
	stage = StagePersisted
	eventStats.Add(statRegistered, 1)
	log = log.WithField("user_id", u.ID)

	// The record is committed; the request being abandoned must not stop the event.
	evCtx := context.WithoutCancel(ctx)
	ev := entity.NewUserCreated(*u)
	res := &RegisterResult{ID: u.ID, Fullname: u.Fullname}

	stage, err = s.emit(evCtx, ev)
	if err != nil {
		eventStats.Add(statFailed, 1)
		res.EventErr = &RegisterError{Stage: stage, Err: err}
		res.EventQueued = s.enqueue(evCtx, ev, err, log)
		log.WithError(err).WithFields(logrus.Fields{"stage": stage, "queued": res.EventQueued}).Error("user created event not published")
	} else {
		eventStats.Add(statPublished, 1)
		log.Info("user registered")
	}

	_ = s.indexUser(evCtx, u)

	res.Stage = StageResponded
	return res, nil
}

// emit drives Persisted -> TopologyEnsured -> Published and returns the last
// stage reached.
func (s *Service) emit(ctx context.Context, ev entity.Event) (Stage, error) {
	if s.Broker == nil {
		return StagePersisted, errors.New("no broker configured")
	}
	ch, err := s.Broker.EnsureTopology(ctx)
	if err != nil {
		return StagePersisted, err
	}
	if err := s.Broker.Publish(ctx, ch, ev); err != nil {
		return StageTopologyEnsured, err
	}
	return StagePublished, nil
}

func (s *Service) enqueue(ctx context.Context, ev entity.Event, cause error, log *logrus.Entry) bool {
	if s.Outbox == nil {
		return false
	}
	payload, err := ev.Payload()
	if err != nil {
		log.WithError(err).Error("encode event for outbox failed")
		return false
	}
	id, err := s.Outbox.Add(ctx, ev.EventType(), payload, cause.Error())
	if err != nil {
		log.WithError(err).Error("outbox insert failed")
		return false
	}
	eventStats.Add(statQueued, 1)
	log.WithField("outbox_id", id).Warn("user created event queued for relay")
	return true
}
