package rankservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/atleastn/internal/atleastn"
	"github.com/danielpatrickdp/atleastn/internal/dataset"
	"github.com/danielpatrickdp/atleastn/internal/evaluator"
	"github.com/danielpatrickdp/atleastn/internal/logging"
)

// #region options
// Options configures a Server.
type Options struct {
	Base      evaluator.Config[string] // settings a request's config is overlaid on
	Store     *dataset.Store           // optional; enables named datasets and run logging
	CacheSize int
	Workers   int // 0 evaluates sequentially
	Logger    *zap.Logger
	Metrics   *Metrics // optional
}

// #endregion options

// #region server-struct
// Server implements RankerServer.
type Server struct {
	opts    Options
	cache   *lru.Cache
	log     *zap.Logger
	metrics *Metrics
}

// NewServer creates a ranking server with an LRU cache of Rank responses.
func NewServer(opts Options) (*Server, error) {
	if err := opts.Base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid base config: %w", err)
	}
	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{opts: opts, cache: cache, log: log, metrics: opts.Metrics}, nil
}

// #endregion server-struct

// #region compute
// Compute handles the Compute RPC.
func (s *Server) Compute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ComputeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	p, err := atleastn.AtLeastN(req.Probabilities, req.N)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(ComputeResponse{Probability: p})
}

// #endregion compute

// #region rank
// Rank handles the Rank RPC.
func (s *Server) Rank(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RankRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	resp, entities, err := s.rank(ctx, req)
	entry := logging.RunEntry{
		TriggerType: "grpc",
		Dataset:     req.Dataset,
		N:           resp.N,
		EntityCount: entities,
		Duration:    time.Since(start),
		Outcome:     logging.OutcomeOK,
	}
	if err != nil {
		entry.Outcome = logging.OutcomeError
		entry.Reason = err.Error()
	}
	s.logRun(entry, resp.Cached)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

func (s *Server) rank(ctx context.Context, req RankRequest) (RankResponse, int, error) {
	if req.Dataset != "" {
		if s.opts.Store == nil {
			return RankResponse{}, 0, status.Error(codes.FailedPrecondition, "server has no dataset store")
		}
		stored, err := s.opts.Store.LoadDataset(req.Dataset)
		if err != nil {
			return RankResponse{}, 0, err
		}
		req.Attributes = stored.Attributes
		req.Entities = plainEntities(stored.Entities)
	}

	fixture := dataset.Fixture{Attributes: req.Attributes, Config: req.Config, Entities: req.Entities}
	if err := fixture.Validate(); err != nil {
		return RankResponse{}, len(req.Entities), status.Error(codes.InvalidArgument, err.Error())
	}

	key, err := cacheKey(req)
	if err != nil {
		return RankResponse{}, len(req.Entities), err
	}
	if v, ok := s.cache.Get(key); ok {
		s.metrics.observeCache(CacheHit)
		resp := v.(RankResponse)
		resp.Cached = true
		return resp, len(req.Entities), nil
	}
	s.metrics.observeCache(CacheMiss)

	ev, err := evaluator.New(fixture.Dataset(), req.Attributes, req.Config.EvaluatorConfig(s.opts.Base))
	if err != nil {
		return RankResponse{}, len(req.Entities), status.Error(codes.InvalidArgument, err.Error())
	}

	var results []evaluator.Result
	if s.opts.Workers > 0 {
		results, err = ev.EvaluateParallel(ctx, s.opts.Workers)
	} else {
		results, err = ev.Evaluate()
	}
	if err != nil {
		return RankResponse{N: ev.N()}, len(req.Entities), err
	}
	s.metrics.addEntities(len(results))

	width := 0
	for name := range req.Entities {
		width = max(width, utf8.RuneCountInString(name))
	}
	resp := RankResponse{
		N:        ev.N(),
		Results:  results,
		Rendered: evaluator.Format(results, width, ev.Config().RoundTo),
	}
	s.cache.Add(key, resp)
	return resp, len(req.Entities), nil
}

// cacheKey is the canonical JSON of the resolved request; map keys are
// sorted by encoding/json.
func cacheKey(req RankRequest) (string, error) {
	req.Dataset = ""
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	return string(data), nil
}

// #endregion rank

// #region helpers
func plainEntities(ds evaluator.Dataset[string]) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(ds))
	for name, attrs := range ds {
		out[name] = attrs
	}
	return out
}

func (s *Server) logRun(entry logging.RunEntry, cached bool) {
	fields := append(logging.RunFields(entry), zap.Bool("cached", cached))
	if entry.Outcome == logging.OutcomeError {
		s.log.Warn("rank failed", fields...)
	} else {
		s.log.Info("ranked", fields...)
	}
	if s.opts.Store == nil {
		return
	}
	if err := logging.LogRun(s.opts.Store.DB(), entry); err != nil {
		s.log.Error("log run", zap.Error(err))
	}
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, atleastn.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// #endregion helpers

// #region serve
// Serve registers s on a new gRPC server and serves lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	gs := grpc.NewServer(grpc.UnaryInterceptor(s.logInterceptor))
	Register(gs, s)

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()
	s.log.Info("serving", zap.String("addr", lis.Addr().String()))

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) logInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)
	code := status.Code(err).String()
	s.metrics.observeRPC(path.Base(info.FullMethod), code, elapsed.Seconds())
	s.log.Debug("rpc",
		zap.String("method", info.FullMethod),
		zap.Duration("duration", elapsed),
		zap.String("code", code))
	return resp, err
}

// #endregion serve
