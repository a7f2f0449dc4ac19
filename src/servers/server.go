// Package servers 提供运行期间的状态查询 HTTP 服务
package servers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/datasync-go/datasync/src/pipeline"
	"github.com/datasync-go/datasync/src/pkg/history"
	dssentry "github.com/datasync-go/datasync/src/pkg/sentry"
)

type commonResp struct {
	ErrNo  int    `json:"err_no"`
	ErrMsg string `json:"err_msg"`
	Data   any    `json:"data,omitempty"`
}

// Config 状态服务依赖
type Config struct {
	Addr    string
	Tracker *Tracker
	// Metrics /metrics 处理器，可为空
	Metrics http.Handler
	// History 历史库，可为空
	History *history.Store
	Logger  logrus.FieldLogger
}

// Server 状态服务
type Server struct {
	server *http.Server
	logger logrus.FieldLogger
}

// NewRouter 构造路由
func NewRouter(cfg Config) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	router := mux.NewRouter()
	router.Use(logRequests(logger))

	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	if cfg.Tracker != nil {
		api.HandleFunc("/units", getUnits(cfg.Tracker)).Methods(http.MethodGet)
		api.HandleFunc("/units/{database}", getUnit(cfg.Tracker)).Methods(http.MethodGet)
	}
	if cfg.History != nil {
		api.HandleFunc("/runs", getRuns(cfg.History)).Methods(http.MethodGet)
		api.HandleFunc("/runs/{id}", getRun(cfg.History)).Methods(http.MethodGet)
		api.HandleFunc("/runs/{id}/units", getRunUnits(cfg.History)).Methods(http.MethodGet)
	}
	return router
}

// New 创建状态服务
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start 监听并在后台提供服务，返回实际监听地址
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	addr := ln.Addr().String()
	s.logger.WithField("addr", addr).Info("status server listening")
	dssentry.Go(func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("status server stopped")
		}
	})
	return addr, nil
}

// Close 优雅关闭
func (s *Server) Close(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(writer http.ResponseWriter, obj any) {
	writeJsonWithStatusCode(writer, http.StatusOK, obj)
}

func writeJsonWithStatusCode(writer http.ResponseWriter, code int, obj any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(code)
	_ = json.NewEncoder(writer).Encode(obj)
}

func writeError(writer http.ResponseWriter, code int, msg string) {
	writeJsonWithStatusCode(writer, code, commonResp{ErrNo: code, ErrMsg: msg})
}

func getUnits(t *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, t.Units())
	}
}

func getUnit(t *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		database := mux.Vars(r)["database"]
		u, ok := t.Unit(database)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("database: %s can not find", database))
			return
		}
		writeJSON(w, u)
	}
}

func getRuns(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			l, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = l
		}
		runs, err := store.ListRuns(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if runs == nil {
			runs = []history.Run{}
		}
		writeJSON(w, runs)
	}
}

func getRun(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := store.GetRun(r.Context(), mux.Vars(r)["id"])
		if errors.Is(err, history.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, run)
	}
}

func getRunUnits(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if _, err := store.GetRun(r.Context(), id); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, history.ErrRunNotFound) {
				code = http.StatusNotFound
			}
			writeError(w, code, err.Error())
			return
		}
		results, err := store.UnitResults(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if results == nil {
			results = []pipeline.Result{}
		}
		writeJSON(w, results)
	}
}
