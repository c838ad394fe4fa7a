// Package grpcserver exposes the catalog, the series grouper and users' watch
// lists over gRPC. Messages are plain structs carried by a JSON codec.
package grpcserver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"animehub/internal/anime"
	"animehub/internal/contentfilter"
	"animehub/internal/library"
	"animehub/internal/series"
	"animehub/pkg/models"
)

type Server struct {
	AnimeRepo   *anime.Repo
	LibraryRepo *library.Repo
	Filter      *contentfilter.Filter
	Logger      *zap.Logger
}

func NewServer(animeRepo *anime.Repo, libraryRepo *library.Repo, filter *contentfilter.Filter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{AnimeRepo: animeRepo, LibraryRepo: libraryRepo, Filter: filter, Logger: logger.Named("grpc")}
}

// Register installs both services on s.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	RegisterCatalogServer(r, s)
	RegisterProgressServer(r, s)
}

// LoggingInterceptor logs each unary call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Stringer("code", code),
			zap.Duration("latency", time.Since(start)),
		}
		if code == codes.Internal {
			logger.Error("rpc", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}

func (s *Server) ListAnime(ctx context.Context, req *ListAnimeRequest) (*ListAnimeResponse, error) {
	query := anime.ListQuery{
		Q:      strings.TrimSpace(req.Q),
		Genres: req.Genres,
		Status: strings.TrimSpace(req.Status),
		Format: strings.TrimSpace(req.Format),
		Year:   req.Year,
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	total, err := s.AnimeRepo.Count(ctx, query)
	if err != nil {
		return nil, status.Error(codes.Internal, "count failed")
	}
	items, err := s.AnimeRepo.List(ctx, query)
	if err != nil {
		return nil, status.Error(codes.Internal, "list failed")
	}
	visible := s.Filter.Apply(items)

	return &ListAnimeResponse{
		Total:  total,
		Hidden: len(items) - len(visible),
		Limit:  query.Limit,
		Offset: query.Offset,
		Items:  visible,
	}, nil
}

func (s *Server) GetAnime(ctx context.Context, req *GetAnimeRequest) (*GetAnimeResponse, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	item, err := s.AnimeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if item == nil || !s.Filter.Allows(*item) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &GetAnimeResponse{Anime: *item}, nil
}

func (s *Server) ListSeries(ctx context.Context, req *ListSeriesRequest) (*ListSeriesResponse, error) {
	sortBy, err := series.ParseSortKey(req.Sort)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	all, err := s.AnimeRepo.ListAll(ctx, anime.ListQuery{
		Q:      strings.TrimSpace(req.Q),
		Genres: req.Genres,
		Status: strings.TrimSpace(req.Status),
		Year:   req.Year,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "list failed")
	}

	groups := series.GroupIntoSeries(s.Filter.Apply(all))
	series.SortGroups(groups, sortBy)
	total := len(groups)
	if req.Limit > 0 && req.Limit < len(groups) {
		groups = groups[:req.Limit]
	}
	return &ListSeriesResponse{Total: total, Items: groups}, nil
}

func (s *Server) ExtractSeries(_ context.Context, req *ExtractSeriesRequest) (*ExtractSeriesResponse, error) {
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.TitleEnglish) == "" {
		return nil, status.Error(codes.InvalidArgument, "title required")
	}
	info, rule := series.Match(req.Title, req.TitleEnglish)
	return &ExtractSeriesResponse{Info: info, Rule: rule, Key: series.NormalizeKey(info.SeriesName)}, nil
}

func (s *Server) ListProgress(ctx context.Context, req *ListProgressRequest) (*ListProgressResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}

	var statusFilter models.ListStatus
	if strings.TrimSpace(req.Status) != "" {
		statusFilter = library.NormalizeStatus(req.Status)
		if statusFilter == "" {
			return nil, status.Error(codes.InvalidArgument, "invalid status filter")
		}
	}

	items, total, err := s.LibraryRepo.List(ctx, userID, statusFilter, req.Limit, req.Offset)
	if err != nil {
		return nil, status.Error(codes.Internal, "list failed")
	}
	return &ListProgressResponse{Total: total, Items: items}, nil
}

func (s *Server) GetProgress(ctx context.Context, req *GetProgressRequest) (*ProgressResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	animeID := strings.TrimSpace(req.AnimeID)
	if userID == "" || animeID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id and anime_id required")
	}

	item, err := s.LibraryRepo.Get(ctx, userID, animeID)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if item == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &ProgressResponse{Item: *item}, nil
}

func (s *Server) UpsertProgress(ctx context.Context, req *UpsertProgressRequest) (*ProgressResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	animeID := strings.TrimSpace(req.AnimeID)
	if userID == "" || animeID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id and anime_id required")
	}
	statusValue := library.NormalizeStatus(req.Status)
	if statusValue == "" {
		return nil, status.Error(codes.InvalidArgument, "invalid status")
	}
	if req.EpisodesWatched < 0 {
		return nil, status.Error(codes.InvalidArgument, "episodes_watched must be >= 0")
	}

	a, err := s.AnimeRepo.GetByID(ctx, animeID)
	if err != nil {
		return nil, status.Error(codes.Internal, "lookup failed")
	}
	if a == nil {
		return nil, status.Error(codes.NotFound, "anime not found")
	}

	entry := models.ListEntry{
		UserID:          userID,
		AnimeID:         animeID,
		EpisodesWatched: library.ClampEpisodes(req.EpisodesWatched, a.Episodes),
		Status:          statusValue,
		Score:           req.Score,
	}
	if statusValue == models.StatusCompleted && a.Episodes > 0 {
		entry.EpisodesWatched = a.Episodes
	}
	if err := s.LibraryRepo.Upsert(ctx, entry); err != nil {
		return nil, status.Error(codes.Internal, "save failed")
	}

	saved, err := s.LibraryRepo.Get(ctx, userID, animeID)
	if err != nil {
		return nil, status.Error(codes.Internal, "fetch failed")
	}
	if saved == nil {
		return nil, status.Error(codes.Internal, "saved item not found")
	}
	return &ProgressResponse{Item: *saved}, nil
}

func (s *Server) DeleteProgress(ctx context.Context, req *DeleteProgressRequest) (*DeleteProgressResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	animeID := strings.TrimSpace(req.AnimeID)
	if userID == "" || animeID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id and anime_id required")
	}

	deleted, err := s.LibraryRepo.Delete(ctx, userID, animeID)
	if err != nil {
		return nil, status.Error(codes.Internal, "delete failed")
	}
	if !deleted {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &DeleteProgressResponse{Deleted: true}, nil
}
