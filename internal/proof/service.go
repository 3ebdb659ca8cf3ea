package proof

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ProverHost locates the prover backend, starting and stopping it when it runs on demand.
type ProverHost interface {
	StartIfNotRunning(ctx context.Context) error
	StopIfRunning(ctx context.Context)
	Running() bool
	URL() string
}

// StaticHost is an always-on prover at a fixed URL.
type StaticHost string

func (h StaticHost) StartIfNotRunning(context.Context) error { return nil }
func (h StaticHost) StopIfRunning(context.Context)           {}
func (h StaticHost) Running() bool                           { return true }
func (h StaticHost) URL() string                             { return string(h) }

type inFlight struct {
	done  chan struct{}
	proof *FileProof
	err   error
}

// Service answers storage proof requests from the disk cache or the prover backend.
// Concurrent identical requests share one prover call.
type Service struct {
	disk          *DiskRepository
	host          ProverHost
	newClient     func(address string) ProverClient
	logger        *zap.Logger
	idleTimeout   time.Duration
	readyInterval time.Duration

	mu              sync.Mutex
	inProgressProof map[string]*inFlight
	idleTimer       *time.Timer
	idleGeneration  uint64
}

func NewService(disk *DiskRepository, host ProverHost, idleTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		disk:            disk,
		host:            host,
		newClient:       func(address string) ProverClient { return NewProverClient(address, nil) },
		logger:          logger,
		idleTimeout:     idleTimeout,
		readyInterval:   time.Second,
		inProgressProof: make(map[string]*inFlight),
	}
}

func (s *Service) GetStorageSlots(ctx context.Context, req *StorageSlotsRequest) (*StorageSlotsResponse, error) {
	id, err := computeId(req)
	if err != nil {
		return nil, err
	}
	if proof := s.disk.Find(id); proof != nil {
		return &StorageSlotsResponse{Witness: proof.Witness}, nil
	}

	s.mu.Lock()
	call, ok := s.inProgressProof[id]
	if !ok {
		call = &inFlight{done: make(chan struct{})}
		s.inProgressProof[id] = call
		s.stopIdleTimer()
		go s.prove(id, req, call)
	}
	s.mu.Unlock()

	select {
	case <-call.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if call.err != nil {
		return nil, call.err
	}
	return &StorageSlotsResponse{Witness: call.proof.Witness}, nil
}

// prove runs detached from any single caller so that a cancelled request does not abort
// a proof other callers are waiting for.
func (s *Service) prove(id string, req *StorageSlotsRequest, call *inFlight) {
	defer func() {
		s.mu.Lock()
		delete(s.inProgressProof, id)
		if len(s.inProgressProof) == 0 {
			s.startIdleTimer()
		}
		s.mu.Unlock()
		close(call.done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Debug("prove start", zap.String("id", id), zap.Stringer("target", req.Target))
	res, err := withClient(ctx, s, func(c ProverClient) (*StorageSlotsResponse, error) {
		return c.GetStorageSlots(ctx, req)
	})
	if err != nil {
		s.logger.Warn("prove failed", zap.String("id", id), zap.Error(err))
		call.err = err
		return
	}
	s.logger.Debug("prove complete", zap.String("id", id))
	call.proof = &FileProof{Witness: res.Witness}
	s.disk.Save(id, call.proof)
}

// Health reports the prover status. A stopped on-demand prover is reported as such
// instead of being started.
func (s *Service) Health(ctx context.Context) (*HealthResponse, error) {
	if !s.host.Running() {
		return &HealthResponse{Status: "stopped"}, nil
	}
	return withClient(ctx, s, func(c ProverClient) (*HealthResponse, error) { return c.Health(ctx) })
}

// InProgress returns the number of proofs currently being generated.
func (s *Service) InProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inProgressProof)
}

func (s *Service) Close() {
	s.mu.Lock()
	s.stopIdleTimer()
	s.mu.Unlock()
	s.disk.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.host.StopIfRunning(ctx)
}

func (s *Service) startIdleTimer() {
	if s.idleTimeout <= 0 {
		return
	}
	s.idleGeneration++
	generation := s.idleGeneration
	s.idleTimer = time.AfterFunc(s.idleTimeout, func() { s.stopIdleHost(generation) })
}

func (s *Service) stopIdleTimer() {
	s.idleGeneration++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// stopIdleHost stops the prover unless a request arrived after the timer with the given
// generation was armed. The lock is held while stopping so that a new request waits for
// the stop to finish and then starts the prover again.
func (s *Service) stopIdleHost(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.idleGeneration || len(s.inProgressProof) > 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.host.StopIfRunning(ctx)
}

func withClient[R any](ctx context.Context, s *Service, callback func(c ProverClient) (*R, error)) (*R, error) {
	if err := s.host.StartIfNotRunning(ctx); err != nil {
		return nil, err
	}
	client := s.newClient(s.host.URL())
	for { // Wait for the prover server to run.
		_, err := client.Health(ctx)
		if err == nil {
			break
		}
		var urlError *url.Error
		if !errors.As(err, &urlError) {
			return nil, err
		}
		s.logger.Info("prover instance started but server not ready, waiting")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.readyInterval):
		}
	}
	return callback(client)
}

func computeId(req *StorageSlotsRequest) (string, error) {
	encoded, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return crypto.Keccak256Hash(encoded).Hex()[2:], nil
}
