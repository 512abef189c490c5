// Package api exposes the knowledge base's Core API surface over HTTP,
// mirroring the CLI's ingest/ask/maintenance operations for the GUI and
// RPC layer named in spec.md §6.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/inkwell-labs/ragkit/internal/config"
	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/graphindex"
	"github.com/inkwell-labs/ragkit/internal/knowledgebase"
	"github.com/inkwell-labs/ragkit/internal/llm"
	"github.com/inkwell-labs/ragkit/internal/maintenance"
	"github.com/inkwell-labs/ragkit/internal/query"
	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

// Server exposes HTTP handlers for the knowledge base's Core API.
type Server struct {
	cfg     config.Config
	logger  *log.Logger
	handler http.Handler

	kb           *knowledgebase.KnowledgeBase
	orchestrator *query.Orchestrator
	ops          *maintenance.Ops
	store        *vectorstore.Store
	graph        *graphindex.Index
}

// New wires a Server against already-open storage handles. The caller
// (main.go's serve command) owns the Postgres pool and
// Neo4j driver's lifetime and closes them on shutdown; Server only holds
// the higher-level handles built from them.
func New(cfg config.Config, logger *log.Logger, graph *graphindex.Index, embedder *embedding.Service, store *vectorstore.Store, llmClient llm.Client) *Server {
	if logger == nil {
		logger = log.Default()
	}

	kb := knowledgebase.New(store, embedder, graph)
	retrieval := query.Config{TopK: cfg.Retrieval.K, FetchK: cfg.Retrieval.FetchK, MaxDistance: cfg.Retrieval.MaxDistance}
	orchestrator := query.New(store, embedder, graph, llmClient, retrieval)
	ops := maintenance.New(embedder, store)

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		kb:           kb,
		orchestrator: orchestrator,
		ops:          ops,
		store:        store,
		graph:        graph,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	mux.HandleFunc("/v1/learn/text", s.handleLearnText)
	mux.HandleFunc("/v1/learn/document", s.handleLearnDocument)
	mux.HandleFunc("/v1/learn/url", s.handleLearnURL)
	mux.HandleFunc("/v1/ask", s.handleAsk)
	mux.HandleFunc("/v1/ask/filtered", s.handleAskFiltered)
	mux.HandleFunc("/v1/stats/kb", s.handleKBStats)
	mux.HandleFunc("/v1/stats/cache", s.handleCacheStats)
	mux.HandleFunc("/v1/cache/clear", s.handleCacheClear)
	mux.HandleFunc("/v1/stats/store", s.handleStoreStats)
	mux.HandleFunc("/v1/store/optimize", s.handleStoreOptimize)
	mux.HandleFunc("/v1/store/reindex", s.handleStoreReindex)
	mux.HandleFunc("/v1/clear", s.handleClear)
	return mux
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", "inline; filename=\"openapi.yaml\"")
	_, _ = w.Write(openAPISpecYAML)
}

type learnTextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source_name"`
}

func (s *Server) handleLearnText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req learnTextRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "manual"
	}

	summary, err := s.kb.LearnText(r.Context(), req.Text, source)
	if err != nil {
		s.writeIngestError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type learnDocumentRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleLearnDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req learnDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("path is required"))
		return
	}

	summary, err := s.kb.LearnDocument(r.Context(), req.Path)
	if err != nil {
		s.writeIngestError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type learnURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleLearnURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req learnURLRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}

	summary, err := s.kb.LearnFromURL(r.Context(), req.URL)
	if err != nil {
		s.writeIngestError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type askRequest struct {
	Query  string           `json:"query"`
	Filter *vectorstore.Filter `json:"filter"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}

	answer, err := s.orchestrator.Ask(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("ask failed: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleAskFiltered(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}
	var filter vectorstore.Filter
	if req.Filter != nil {
		filter = *req.Filter
	}

	answer, err := s.orchestrator.AskFiltered(r.Context(), req.Query, filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("ask failed: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleKBStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	stats, err := s.kb.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("kb stats: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, s.ops.CacheStats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	before, err := s.ops.ClearCache()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("clear cache: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, before)
}

func (s *Server) handleStoreStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	report, err := s.ops.StoreStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("store stats: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStoreOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	before, after, err := s.ops.OptimizeStore(r.Context(), s.largePolicy(), nil)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("optimize store: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]maintenance.StoreReport{"before": before, "after": after})
}

type reindexRequest struct {
	Profile vectorstore.Profile `json:"profile"`
}

func (s *Server) handleStoreReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req reindexRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Profile == "" {
		req.Profile = vectorstore.ProfileAuto
	}

	before, after, err := s.ops.ReindexStore(r.Context(), req.Profile, s.largePolicy(), nil)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("reindex store: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]maintenance.StoreReport{"before": before, "after": after})
}

func (s *Server) largePolicy() vectorstore.LargePolicy {
	return vectorstore.LargePolicy{
		Threshold:       s.cfg.LargeStore.Threshold,
		BatchSize:       s.cfg.LargeStore.IncrementalBatch,
		CheckpointEvery: s.cfg.LargeStore.CheckpointEvery,
		MemoryCapMiB:    s.cfg.LargeStore.MemoryCapMiB,
	}
}

type clearRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req clearRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if !req.Confirm {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("confirm must be true to clear data"))
		return
	}

	ctx := r.Context()
	if err := s.store.Clear(ctx); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("clear vector store: %w", err))
		return
	}
	if err := s.graph.Clear(ctx); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("clear graph index: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "knowledge base cleared"})
}

func (s *Server) writeIngestError(w http.ResponseWriter, err error) {
	s.writeError(w, http.StatusUnprocessableEntity, err)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
